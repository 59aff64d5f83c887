package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/port"
)

type PayRequest struct {
	OrderID string
	Method  domain.PaymentMethod
	// Tendered is only read for cash payments.
	Tendered   domain.Money
	OperatorID string
}

// Pay records the single transaction that settles an order and pins the order
// to selesai.
//
// The lookup for an existing transaction only gives an early, friendly error.
// The unique order_id constraint in the transaction store is what prevents a
// second charge when two cashiers race; its violation is reported as the same
// already-paid error. If the transaction is stored but the order cannot be
// moved to selesai, the stored transaction is returned together with a
// *domain.ConsistencyError.
func (s *OrderService) Pay(ctx context.Context, req PayRequest) (*domain.Transaction, error) {
	operator := strings.TrimSpace(req.OperatorID)
	if operator == "" {
		return nil, domain.ErrOperatorRequired
	}
	if !req.Method.Valid() {
		return nil, domain.ErrMethodInvalid
	}

	order, err := s.loadOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.ErrOrderCancelled
	}
	if !domain.Payable(order.Status) {
		return nil, &domain.DomainError{
			Code: domain.CodeNotPayable,
			Msg:  "order " + order.ID + " is " + string(order.Status) + ", it must be accepted before payment",
		}
	}

	existing, err := s.findTransaction(ctx, order.ID)
	if err != nil {
		return nil, domain.PaymentStoreFailure("check existing payment", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyPaid
	}

	tendered, change, err := domain.Settle(req.Method, order.Total, req.Tendered)
	if err != nil {
		return nil, err
	}

	txn := domain.Transaction{
		ID:         s.opts.NewID(),
		OrderID:    order.ID,
		OperatorID: operator,
		Method:     req.Method,
		Total:      order.Total,
		Tendered:   tendered,
		Change:     change,
		PaidAt:     s.opts.Now(),
	}

	if s.guard != nil {
		release, err := s.acquireGuard(ctx, order.ID, txn.ID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	sctx, cancel := s.storeCtx(ctx)
	err = s.transactions.CreateTransaction(sctx, txn)
	cancel()
	if errors.Is(err, port.ErrDuplicateTransaction) {
		s.log.Info(ctx, "payment_duplicate", "payment rejected by unique constraint",
			slog.String("order_id", order.ID), slog.String("operator_id", operator))
		return nil, domain.ErrAlreadyPaid
	}
	if err != nil {
		return nil, domain.PaymentStoreFailure("store transaction", err)
	}

	s.log.Info(ctx, "payment_recorded", "order paid",
		slog.String("order_id", order.ID),
		slog.String("transaction_id", txn.ID),
		slog.String("method", string(txn.Method)),
		slog.Int64("total", int64(txn.Total)),
		slog.Int64("change", int64(txn.Change)))

	if err := s.settleOrder(ctx, order, operator); err != nil {
		return &txn, err
	}
	return &txn, nil
}

func (s *OrderService) acquireGuard(ctx context.Context, orderID, token string) (func(), error) {
	sctx, cancel := s.storeCtx(ctx)
	ok, err := s.guard.AcquirePayment(sctx, orderID, token)
	cancel()
	if err != nil {
		return nil, domain.PaymentStoreFailure("acquire payment guard", err)
	}
	if !ok {
		return nil, domain.ErrPaymentInProgress
	}

	return func() {
		dctx, cancel := s.detached(ctx)
		defer cancel()
		if err := s.guard.ReleasePayment(dctx, orderID, token); err != nil {
			s.log.Error(ctx, "payment_guard_release_failed", "payment guard left to expire", err,
				slog.String("order_id", orderID))
		}
	}, nil
}

// settleOrder moves a paid order to selesai. The transaction already exists, so
// this runs detached from the request and any failure is an incident.
func (s *OrderService) settleOrder(ctx context.Context, order *domain.Order, operator string) error {
	dctx, cancel := s.detached(ctx)
	ok, err := s.orders.UpdateOrderStatus(dctx, order.ID,
		[]domain.OrderStatus{domain.OrderStatusProses, domain.OrderStatusSelesai}, domain.OrderStatusSelesai)
	cancel()
	if err == nil && !ok {
		err = errors.New("order left the payable states while being paid")
	}
	if err != nil {
		cerr := &domain.ConsistencyError{Op: "mark paid order selesai", OrderID: order.ID, Err: err}
		s.log.Critical(ctx, "payment_settle_failed", "transaction stored but order status not updated", cerr,
			slog.String("order_id", order.ID), slog.String("status", string(order.Status)))
		return cerr
	}

	previous := order.Status
	order.Status = domain.OrderStatusSelesai
	if previous != domain.OrderStatusSelesai {
		s.publish(ctx, port.StatusChange{
			OrderID:   order.ID,
			TableID:   order.TableID,
			OldStatus: previous,
			NewStatus: domain.OrderStatusSelesai,
			ChangedBy: operator,
			Reason:    "paid",
		})
	}
	return s.syncLineStatus(ctx, order.ID, domain.OrderStatusSelesai)
}
