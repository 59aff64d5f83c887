package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/port"
)

// CancelAndRestore puts an unpaid order back into the guest's cart and deletes
// it, so the guest can edit and resubmit.
//
// The cart is restored before anything is deleted. A failure between the two
// steps leaves the order in place next to the restored cart, which the guest can
// resolve by resubmitting. It never loses both. The returned cart is the
// session cart after the merge, or the order's lines alone without a session.
func (s *OrderService) CancelAndRestore(ctx context.Context, orderID, sessionID string) (domain.Cart, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Cart{}, err
	}

	tx, err := s.findTransaction(ctx, order.ID)
	if err != nil {
		return domain.Cart{}, domain.DomainStoreFailure("check payment", err)
	}
	if tx != nil {
		return domain.Cart{}, domain.ErrOrderPaid
	}
	if !order.Status.Active() {
		return domain.Cart{}, &domain.DomainError{
			Code: domain.CodeNotReversible,
			Msg:  "order " + order.ID + " is " + string(order.Status),
		}
	}

	sctx, cancel := s.storeCtx(ctx)
	lines, err := s.orders.ListOrderLines(sctx, order.ID)
	cancel()
	if err != nil {
		return domain.Cart{}, domain.DomainStoreFailure("load order lines", err)
	}
	restored := domain.CartFromLines(lines)

	cart, err := s.restoreCart(ctx, sessionID, restored)
	if err != nil {
		return domain.Cart{}, err
	}

	dctx, dcancel := s.detached(ctx)
	err = s.orders.DeleteOrder(dctx, order.ID)
	dcancel()
	if errors.Is(err, port.ErrOrderReferenced) {
		// A payment landed between the check and the delete.
		s.log.Warn(ctx, "restore_raced_payment", "order was paid during restore, cart keeps a copy", err,
			slog.String("order_id", order.ID), slog.String("session_id", sessionID))
		return domain.Cart{}, domain.ErrOrderPaid
	}
	if err != nil {
		s.log.Error(ctx, "restore_delete_failed", "cart restored but order still exists", err,
			slog.String("order_id", order.ID), slog.String("session_id", sessionID))
		return domain.Cart{}, domain.DomainStoreFailure("delete restored order", err)
	}

	s.log.Info(ctx, "order_restored", "order moved back to cart",
		slog.String("order_id", order.ID),
		slog.String("session_id", sessionID),
		slog.Int("lines", len(restored.Lines)))

	s.publish(ctx, port.StatusChange{
		OrderID:   order.ID,
		TableID:   order.TableID,
		OldStatus: order.Status,
		NewStatus: domain.OrderStatusCancelled,
		ChangedBy: order.CustomerName,
		Reason:    "restored_to_cart",
	})
	return cart, nil
}

func (s *OrderService) restoreCart(ctx context.Context, sessionID string, restored domain.Cart) (domain.Cart, error) {
	if sessionID == "" || s.carts == nil {
		return restored, nil
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	cart, err := s.carts.GetCart(sctx, sessionID)
	if err != nil {
		return domain.Cart{}, domain.DomainStoreFailure("load cart", err)
	}
	cart.Merge(restored)
	if err := s.carts.SaveCart(sctx, sessionID, cart); err != nil {
		return domain.Cart{}, domain.DomainStoreFailure("save restored cart", err)
	}
	return cart, nil
}
