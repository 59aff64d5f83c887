package service

import (
	"context"

	"github.com/rl1809/restopos/internal/core/domain"
)

// GetTableOccupancy derives every table's occupancy from the orders that are
// live right now. Nothing is cached between calls.
func (s *OrderService) GetTableOccupancy(ctx context.Context) (map[string]domain.Occupancy, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	tables, err := s.tables.ListTables(sctx)
	if err != nil {
		return nil, domain.DomainStoreFailure("list tables", err)
	}
	active, err := s.orders.ListOrders(sctx, domain.OrderFilter{
		Statuses: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProses},
	})
	if err != nil {
		return nil, domain.DomainStoreFailure("list active orders", err)
	}
	return domain.DeriveOccupancy(tables, active), nil
}
