package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/port"
)

type SubmitOrderRequest struct {
	// SessionID names the stored cart to clear on success. Optional.
	SessionID    string
	Cart         domain.Cart
	TableID      string
	CustomerName string
	Note         string
}

// SubmitOrder turns a cart into a pending order at a table.
//
// The order header is written first and its lines second. If the lines cannot
// be written the header is deleted again before returning. When that delete
// fails too the result is a *domain.ConsistencyError.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*domain.Order, error) {
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		return nil, domain.ErrCustomerRequired
	}
	tableID := strings.TrimSpace(req.TableID)
	if tableID == "" {
		return nil, domain.ErrTableRequired
	}
	if err := s.checkTableAvailable(ctx, tableID); err != nil {
		return nil, err
	}
	if req.Cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	now := s.opts.Now()
	order := domain.Order{
		ID:           s.opts.NewID(),
		TableID:      tableID,
		CustomerName: customer,
		Note:         strings.TrimSpace(req.Note),
		Status:       domain.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	lines, err := s.buildLines(ctx, order.ID, req.Cart)
	if err != nil {
		return nil, err
	}
	order.Total = domain.SumLines(lines)

	sctx, cancel := s.storeCtx(ctx)
	err = s.orders.CreateOrder(sctx, order)
	cancel()
	if err != nil {
		// The insert may have landed before the error surfaced.
		return nil, s.rollbackOrder(ctx, order, "create order", err)
	}

	sctx, cancel = s.storeCtx(ctx)
	err = s.orders.CreateOrderLines(sctx, lines)
	cancel()
	if err != nil {
		return nil, s.rollbackOrder(ctx, order, "create order lines", err)
	}

	order.Lines = lines
	s.log.Info(ctx, "order_created", "order submitted",
		slog.String("order_id", order.ID),
		slog.String("table_id", order.TableID),
		slog.Int("lines", len(lines)),
		slog.Int64("total", int64(order.Total)))

	if req.SessionID != "" && s.carts != nil {
		sctx, cancel = s.storeCtx(ctx)
		err = s.carts.ClearCart(sctx, req.SessionID)
		cancel()
		if err != nil {
			s.log.Error(ctx, "cart_clear_failed", "order created but cart was not cleared", err,
				slog.String("order_id", order.ID), slog.String("session_id", req.SessionID))
		}
	}

	s.publish(ctx, port.StatusChange{
		OrderID:   order.ID,
		TableID:   order.TableID,
		NewStatus: order.Status,
		ChangedBy: customer,
		Reason:    "submitted",
	})
	return &order, nil
}

func (s *OrderService) checkTableAvailable(ctx context.Context, tableID string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	table, err := s.tables.GetTable(sctx, tableID)
	if err != nil {
		return domain.ValidationStoreFailure("look up table", err)
	}
	if table == nil {
		return &domain.ValidationError{Code: domain.CodeTableUnknown, Field: "table_id", Msg: "table " + tableID + " does not exist"}
	}

	active, err := s.orders.ListOrders(sctx, domain.OrderFilter{
		TableID:  tableID,
		Statuses: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProses},
	})
	if err != nil {
		return domain.ValidationStoreFailure("check table occupancy", err)
	}
	if len(active) > 0 {
		return &domain.ValidationError{Code: domain.CodeTableOccupied, Field: "table_id", Msg: "table " + tableID + " is occupied"}
	}
	return nil
}

// buildLines prices every cart line against the menu. Duplicate items are
// folded into one line.
func (s *OrderService) buildLines(ctx context.Context, orderID string, cart domain.Cart) ([]domain.OrderLine, error) {
	for i, l := range cart.Lines {
		if l.Quantity < 1 {
			return nil, &domain.ValidationError{
				Code:  domain.CodeQuantityInvalid,
				Field: "cart.lines[" + strconv.Itoa(i) + "].quantity",
				Msg:   "quantity must be at least 1",
			}
		}
	}
	var merged domain.Cart
	merged.Merge(cart)

	lines := make([]domain.OrderLine, 0, len(merged.Lines))
	for _, cl := range merged.Lines {
		sctx, cancel := s.storeCtx(ctx)
		item, err := s.menu.GetMenuItem(sctx, cl.ItemID)
		cancel()
		if err != nil {
			return nil, domain.ValidationStoreFailure("look up menu item "+cl.ItemID, err)
		}
		if item == nil {
			return nil, &domain.ValidationError{Code: domain.CodeItemUnknown, Field: "cart", Msg: "menu item " + cl.ItemID + " does not exist"}
		}
		if !item.Available {
			return nil, &domain.ValidationError{Code: domain.CodeItemUnavailable, Field: "cart", Msg: item.Name + " is not available"}
		}

		lines = append(lines, domain.OrderLine{
			ID:         s.opts.NewID(),
			OrderID:    orderID,
			MenuItemID: item.ID,
			ItemName:   item.Name,
			Quantity:   cl.Quantity,
			UnitPrice:  item.Price,
			Subtotal:   item.Price.Times(cl.Quantity),
			Note:       cl.Note,
			Status:     domain.OrderStatusPending,
		})
	}
	return lines, nil
}

// rollbackOrder deletes a half-written order. It returns the error to hand back
// to the caller: the original failure when cleanup worked, otherwise a
// ConsistencyError.
func (s *OrderService) rollbackOrder(ctx context.Context, order domain.Order, step string, cause error) error {
	dctx, cancel := s.detached(ctx)
	defer cancel()

	if err := s.orders.DeleteOrder(dctx, order.ID); err != nil {
		cerr := &domain.ConsistencyError{Op: "delete order after failed " + step, OrderID: order.ID, Err: err}
		s.log.Critical(ctx, "compensation_failed", "order could not be removed after a failed submit", cerr,
			slog.String("order_id", order.ID),
			slog.String("table_id", order.TableID),
			slog.String("step", step),
			slog.String("cause", cause.Error()))
		return cerr
	}

	s.log.Warn(ctx, "order_rolled_back", "order removed after failed submit", cause,
		slog.String("order_id", order.ID), slog.String("step", step))
	return domain.ValidationStoreFailure(step, cause)
}
