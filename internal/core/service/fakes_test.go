package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/logger"
	"github.com/rl1809/restopos/internal/port"
)

var errStoreDown = errors.New("store unavailable")

// memStore fakes every port the service uses. Failure hooks return an error
// for the named call when set.
type memStore struct {
	mu sync.Mutex

	orders map[string]domain.Order
	lines  map[string][]domain.OrderLine
	txns   map[string]domain.Transaction
	menu   map[string]domain.MenuItem
	tables []domain.Table
	carts  map[string]domain.Cart
	guards map[string]string
	events []port.StatusChange

	failCreateLines    error
	failDeleteOrder    error
	failLineStatus     int // number of UpdateLineStatus calls that fail
	failCreateTxn      error
	skipTxnLookup      bool // simulates a racing cashier whose pre-check saw nothing
	lineStatusAttempts int
}

func newMemStore() *memStore {
	return &memStore{
		orders: make(map[string]domain.Order),
		lines:  make(map[string][]domain.OrderLine),
		txns:   make(map[string]domain.Transaction),
		menu: map[string]domain.MenuItem{
			"A":    {ID: "A", Name: "Nasi Goreng", Price: 10000, Category: "makanan", Available: true},
			"B":    {ID: "B", Name: "Es Teh Jumbo", Price: 25000, Category: "minuman", Available: true},
			"SOLD": {ID: "SOLD", Name: "Sate Kambing", Price: 40000, Category: "makanan", Available: false},
		},
		tables: []domain.Table{{ID: "T1", Name: "Meja 1"}, {ID: "T2", Name: "Meja 2"}, {ID: "T3", Name: "Meja 3"}},
		carts:  make(map[string]domain.Cart),
		guards: make(map[string]string),
	}
}

func (m *memStore) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.Lines = nil
	m.orders[order.ID] = order
	return nil
}

func (m *memStore) CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateLines != nil {
		return m.failCreateLines
	}
	for _, l := range lines {
		m.lines[l.OrderID] = append(m.lines[l.OrderID], l)
	}
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memStore) ListOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderLine(nil), m.lines[orderID]...), nil
}

func (m *memStore) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = to
			m.orders[id] = o
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateLineStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lineStatusAttempts++
	if m.failLineStatus > 0 {
		m.failLineStatus--
		return errStoreDown
	}
	for i := range m.lines[orderID] {
		m.lines[orderID][i].Status = status
	}
	return nil
}

func (m *memStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeleteOrder != nil {
		return m.failDeleteOrder
	}
	if _, paid := m.txns[id]; paid {
		return port.ErrOrderReferenced
	}
	delete(m.orders, id)
	delete(m.lines, id)
	return nil
}

func (m *memStore) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateTxn != nil {
		return m.failCreateTxn
	}
	if _, ok := m.txns[tx.OrderID]; ok {
		return port.ErrDuplicateTransaction
	}
	m.txns[tx.OrderID] = tx
	return nil
}

func (m *memStore) GetTransactionByOrder(ctx context.Context, orderID string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipTxnLookup {
		return nil, nil
	}
	tx, ok := m.txns[orderID]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (m *memStore) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *memStore) ListTables(ctx context.Context) ([]domain.Table, error) {
	return m.tables, nil
}

func (m *memStore) GetTable(ctx context.Context, id string) (*domain.Table, error) {
	for _, t := range m.tables {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.carts[sessionID]
	return domain.Cart{Lines: append([]domain.CartLine(nil), c.Lines...)}, nil
}

func (m *memStore) SaveCart(ctx context.Context, sessionID string, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = cart
	return nil
}

func (m *memStore) ClearCart(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func (m *memStore) AcquirePayment(ctx context.Context, orderID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.guards[orderID]; held {
		return false, nil
	}
	m.guards[orderID] = token
	return true, nil
}

func (m *memStore) ReleasePayment(ctx context.Context, orderID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.guards[orderID] == token {
		delete(m.guards, orderID)
	}
	return nil
}

func (m *memStore) PublishStatusChange(ctx context.Context, change port.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, change)
	return nil
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) txnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns)
}

func newTestService(store *memStore) *OrderService {
	opts := DefaultOptions()
	opts.LineSyncBackoff = 0
	return NewOrderService(Dependencies{
		Orders:       store,
		Transactions: store,
		Menu:         store,
		Tables:       store,
		Carts:        store,
		Guard:        store,
		Events:       store,
		Logger:       logger.Discard(),
	}, opts)
}

// standardCart is 2× A @ 10000 and 1× B @ 25000.
func standardCart() domain.Cart {
	return domain.Cart{Lines: []domain.CartLine{
		{ItemID: "A", Quantity: 2, UnitPrice: 10000},
		{ItemID: "B", Quantity: 1, UnitPrice: 25000},
	}}
}
