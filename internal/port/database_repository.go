package port

import (
	"context"
	"errors"

	"github.com/rl1809/restopos/internal/core/domain"
)

var (
	// ErrDuplicateTransaction is returned when a transaction for the order already exists.
	ErrDuplicateTransaction = errors.New("transaction already exists for order")

	// ErrOrderReferenced is returned when deleting an order a transaction points to.
	ErrOrderReferenced = errors.New("order is referenced by a transaction")
)

type OrderRepository interface {
	// CreateOrder persists the order header without its lines
	CreateOrder(ctx context.Context, order domain.Order) error

	// CreateOrderLines persists all lines of one order
	CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error

	// GetOrder returns nil, nil when the order does not exist
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// ListOrderLines returns the lines of an order
	ListOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)

	// ListOrders returns orders matching the filter
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	// UpdateOrderStatus sets status to `to` only if the current status is one of `from`.
	// It reports whether a row was changed.
	UpdateOrderStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error)

	// UpdateLineStatus mirrors status onto every line of the order
	UpdateLineStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// DeleteOrder removes the order and its lines, ErrOrderReferenced if paid
	DeleteOrder(ctx context.Context, id string) error
}

type TransactionRepository interface {
	// CreateTransaction returns ErrDuplicateTransaction on a second insert for the same order
	CreateTransaction(ctx context.Context, tx domain.Transaction) error

	// GetTransactionByOrder returns nil, nil when the order is unpaid
	GetTransactionByOrder(ctx context.Context, orderID string) (*domain.Transaction, error)
}

type MenuCatalog interface {
	// GetMenuItem returns nil, nil for unknown items
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
}

type TableRegistry interface {
	ListTables(ctx context.Context) ([]domain.Table, error)

	// GetTable returns nil, nil for unknown tables
	GetTable(ctx context.Context, id string) (*domain.Table, error)
}
