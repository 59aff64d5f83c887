package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProses    OrderStatus = "proses"
	OrderStatusSelesai   OrderStatus = "selesai"
	OrderStatusCancelled OrderStatus = "dibatalkan"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProses, OrderStatusSelesai, OrderStatusCancelled:
		return true
	}
	return false
}

// Active statuses keep a table occupied.
func (s OrderStatus) Active() bool {
	return s == OrderStatusPending || s == OrderStatusProses
}

// Terminal statuses accept no further transitions through the state machine.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusSelesai || s == OrderStatusCancelled
}

type Order struct {
	ID           string      `json:"id"`
	TableID      string      `json:"table_id"`
	CustomerName string      `json:"customer_name"`
	Note         string      `json:"note,omitempty"`
	Status       OrderStatus `json:"status"`
	Total        Money       `json:"total"`
	Lines        []OrderLine `json:"lines,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type OrderLine struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"order_id"`
	MenuItemID string      `json:"menu_item_id"`
	ItemName   string      `json:"item_name"`
	Quantity   int         `json:"quantity"`
	UnitPrice  Money       `json:"unit_price"`
	Subtotal   Money       `json:"subtotal"`
	Note       string      `json:"note,omitempty"`
	Status     OrderStatus `json:"status"`
}

// SumLines returns Σ subtotal over lines.
func SumLines(lines []OrderLine) Money {
	var sum Money
	for _, l := range lines {
		sum += l.Subtotal
	}
	return sum
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	TableID  string
	Statuses []OrderStatus
}

// Matches applies the filter to a single order.
func (f OrderFilter) Matches(o Order) bool {
	if f.TableID != "" && o.TableID != f.TableID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
