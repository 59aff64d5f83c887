package service

import (
	"context"
	"log/slog"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/port"
)

// AdvanceStatus moves an order to target on behalf of role.
//
// The order row is updated with a compare-and-swap on its current status, then
// the status is mirrored onto the lines. If the mirror cannot be written the
// updated order is returned together with a *domain.ConsistencyError.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID string, target domain.OrderStatus, role domain.Role) (*domain.Order, error) {
	if !role.Valid() {
		return nil, domain.ErrRoleInvalid
	}
	if !target.Valid() {
		return nil, domain.ErrStatusInvalid
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(role, order.Status, target); err != nil {
		return nil, err
	}

	if target == domain.OrderStatusCancelled {
		tx, err := s.findTransaction(ctx, order.ID)
		if err != nil {
			return nil, domain.DomainStoreFailure("check payment", err)
		}
		if tx != nil {
			return nil, domain.ErrOrderPaid
		}
	}

	sctx, cancel := s.storeCtx(ctx)
	ok, err := s.orders.UpdateOrderStatus(sctx, order.ID, []domain.OrderStatus{order.Status}, target)
	cancel()
	if err != nil {
		return nil, domain.DomainStoreFailure("update order status", err)
	}
	if !ok {
		return nil, &domain.DomainError{
			Code: domain.CodeStatusConflict,
			Msg:  "order " + order.ID + " is no longer " + string(order.Status),
		}
	}

	previous := order.Status
	order.Status = target
	order.UpdatedAt = s.opts.Now()

	s.log.Info(ctx, "order_status_changed", "order status advanced",
		slog.String("order_id", order.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(target)),
		slog.String("role", string(role)))

	s.publish(ctx, port.StatusChange{
		OrderID:   order.ID,
		TableID:   order.TableID,
		OldStatus: previous,
		NewStatus: target,
		ChangedBy: string(role),
		Reason:    "status",
	})

	if err := s.syncLineStatus(ctx, order.ID, target); err != nil {
		return order, err
	}
	return order, nil
}
