package port

import (
	"context"

	"github.com/rl1809/restopos/internal/core/domain"
)

type CartStore interface {
	// GetCart returns an empty cart for unknown sessions
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)

	SaveCart(ctx context.Context, sessionID string, cart domain.Cart) error

	ClearCart(ctx context.Context, sessionID string) error
}

type PaymentGuard interface {
	// AcquirePayment marks a payment for the order as in flight, returns false if one already is
	AcquirePayment(ctx context.Context, orderID, token string) (bool, error)

	// ReleasePayment clears the mark if it is still held by token
	ReleasePayment(ctx context.Context, orderID, token string) error
}
