package handler

import (
	"context"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/core/service"
)

// stubCore answers each call with the configured func, or a zero value.
type stubCore struct {
	submit    func(service.SubmitOrderRequest) (*domain.Order, error)
	getOrder  func(string) (*domain.Order, error)
	advance   func(string, domain.OrderStatus, domain.Role) (*domain.Order, error)
	pay       func(service.PayRequest) (*domain.Transaction, error)
	restore   func(string, string) (domain.Cart, error)
	occupancy func() (map[string]domain.Occupancy, error)
	carts     map[string]domain.Cart
}

func (s *stubCore) SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*domain.Order, error) {
	return s.submit(req)
}

func (s *stubCore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.getOrder(orderID)
}

func (s *stubCore) AdvanceStatus(ctx context.Context, orderID string, target domain.OrderStatus, role domain.Role) (*domain.Order, error) {
	return s.advance(orderID, target, role)
}

func (s *stubCore) Pay(ctx context.Context, req service.PayRequest) (*domain.Transaction, error) {
	return s.pay(req)
}

func (s *stubCore) CancelAndRestore(ctx context.Context, orderID, sessionID string) (domain.Cart, error) {
	return s.restore(orderID, sessionID)
}

func (s *stubCore) GetTableOccupancy(ctx context.Context) (map[string]domain.Occupancy, error) {
	return s.occupancy()
}

func (s *stubCore) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.carts[sessionID], nil
}

func (s *stubCore) AddToCart(ctx context.Context, sessionID, itemID string, qty int) (domain.Cart, error) {
	if qty < 1 {
		return domain.Cart{}, domain.ErrQuantityInvalid
	}
	cart := s.carts[sessionID]
	cart.Lines = append(cart.Lines, domain.CartLine{ItemID: itemID, Quantity: qty})
	s.carts[sessionID] = cart
	return cart, nil
}

func (s *stubCore) RemoveFromCart(ctx context.Context, sessionID, itemID string) (domain.Cart, error) {
	cart := s.carts[sessionID]
	cart.Decrement(itemID)
	s.carts[sessionID] = cart
	return cart, nil
}

func newStubCore() *stubCore {
	return &stubCore{carts: make(map[string]domain.Cart)}
}
