package service

import (
	"context"

	"github.com/rl1809/restopos/internal/core/domain"
)

func (s *OrderService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	cart, err := s.carts.GetCart(sctx, sessionID)
	if err != nil {
		return domain.Cart{}, domain.ValidationStoreFailure("load cart", err)
	}
	return cart, nil
}

// AddToCart adds qty units of a menu item to the session cart at its current price.
func (s *OrderService) AddToCart(ctx context.Context, sessionID, itemID string, qty int) (domain.Cart, error) {
	if qty < 1 {
		return domain.Cart{}, domain.ErrQuantityInvalid
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	item, err := s.menu.GetMenuItem(sctx, itemID)
	if err != nil {
		return domain.Cart{}, domain.ValidationStoreFailure("look up menu item", err)
	}
	if item == nil {
		return domain.Cart{}, &domain.ValidationError{Code: domain.CodeItemUnknown, Field: "item_id", Msg: "menu item " + itemID + " does not exist"}
	}
	if !item.Available {
		return domain.Cart{}, &domain.ValidationError{Code: domain.CodeItemUnavailable, Field: "item_id", Msg: item.Name + " is not available"}
	}

	cart, err := s.carts.GetCart(sctx, sessionID)
	if err != nil {
		return domain.Cart{}, domain.ValidationStoreFailure("load cart", err)
	}
	if err := cart.Add(*item, qty); err != nil {
		return domain.Cart{}, err
	}
	if err := s.carts.SaveCart(sctx, sessionID, cart); err != nil {
		return domain.Cart{}, domain.ValidationStoreFailure("save cart", err)
	}
	return cart, nil
}

// RemoveFromCart takes one unit of an item out of the session cart.
func (s *OrderService) RemoveFromCart(ctx context.Context, sessionID, itemID string) (domain.Cart, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	cart, err := s.carts.GetCart(sctx, sessionID)
	if err != nil {
		return domain.Cart{}, domain.ValidationStoreFailure("load cart", err)
	}
	if !cart.Decrement(itemID) {
		return cart, nil
	}
	if cart.IsEmpty() {
		err = s.carts.ClearCart(sctx, sessionID)
	} else {
		err = s.carts.SaveCart(sctx, sessionID, cart)
	}
	if err != nil {
		return domain.Cart{}, domain.ValidationStoreFailure("save cart", err)
	}
	return cart, nil
}
