package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/logger"
	"github.com/rl1809/restopos/internal/port"
)

// Dependencies are the stores the order core reads and writes.
type Dependencies struct {
	Orders       port.OrderRepository
	Transactions port.TransactionRepository
	Menu         port.MenuCatalog
	Tables       port.TableRegistry
	Carts        port.CartStore
	Guard        port.PaymentGuard
	Events       port.EventPublisher
	Logger       *logger.Logger
}

type Options struct {
	// StoreTimeout bounds every store call made on behalf of a request.
	StoreTimeout time.Duration
	// CompensationTimeout bounds compensating writes, which ignore request cancellation.
	CompensationTimeout time.Duration
	// LineSyncRetries is the number of extra attempts when mirroring status onto lines.
	LineSyncRetries int
	LineSyncBackoff time.Duration

	Now   func() time.Time
	NewID func() string
}

func DefaultOptions() Options {
	return Options{
		StoreTimeout:        5 * time.Second,
		CompensationTimeout: 10 * time.Second,
		LineSyncRetries:     3,
		LineSyncBackoff:     100 * time.Millisecond,
		Now:                 time.Now,
		NewID:               uuid.NewString,
	}
}

type OrderService struct {
	orders       port.OrderRepository
	transactions port.TransactionRepository
	menu         port.MenuCatalog
	tables       port.TableRegistry
	carts        port.CartStore
	guard        port.PaymentGuard
	events       port.EventPublisher
	log          *logger.Logger
	opts         Options
}

func NewOrderService(deps Dependencies, opts Options) *OrderService {
	def := DefaultOptions()
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = def.StoreTimeout
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = def.CompensationTimeout
	}
	if opts.LineSyncRetries < 0 {
		opts.LineSyncRetries = 0
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.NewID == nil {
		opts.NewID = def.NewID
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewLogger("order-core")
	}

	return &OrderService{
		orders:       deps.Orders,
		transactions: deps.Transactions,
		menu:         deps.Menu,
		tables:       deps.Tables,
		carts:        deps.Carts,
		guard:        deps.Guard,
		events:       deps.Events,
		log:          deps.Logger,
		opts:         opts,
	}
}

func (s *OrderService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// detached returns a context that survives cancellation of ctx. Compensating
// writes run on it so a dropped request cannot abort them halfway.
func (s *OrderService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.CompensationTimeout)
}

// loadOrder fetches an order or returns ErrOrderNotFound.
func (s *OrderService) loadOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrOrderIDRequired
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.GetOrder(sctx, id)
	if err != nil {
		return nil, domain.DomainStoreFailure("load order "+id, err)
	}
	if order == nil {
		return nil, &domain.DomainError{Code: domain.CodeOrderNotFound, Msg: "order " + id + " not found"}
	}
	return order, nil
}

func (s *OrderService) findTransaction(ctx context.Context, orderID string) (*domain.Transaction, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.transactions.GetTransactionByOrder(sctx, orderID)
}

// IsPaid reports whether a transaction settles the order. Status selesai alone
// only means the order was delivered.
func (s *OrderService) IsPaid(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, domain.ErrOrderIDRequired
	}
	tx, err := s.findTransaction(ctx, orderID)
	if err != nil {
		return false, domain.DomainStoreFailure("check payment", err)
	}
	return tx != nil, nil
}

// GetOrder returns the order with its lines. Lines whose status drifted from
// the order's are brought back in line before returning.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	lines, err := s.orders.ListOrderLines(sctx, orderID)
	cancel()
	if err != nil {
		return nil, domain.DomainStoreFailure("load order lines", err)
	}

	drifted := false
	for _, l := range lines {
		if l.Status != order.Status {
			drifted = true
			break
		}
	}
	if drifted {
		s.log.Info(ctx, "line_status_drift", "reconciling order line status",
			slog.String("order_id", orderID), slog.String("status", string(order.Status)))
		if err := s.syncLineStatus(ctx, order.ID, order.Status); err != nil {
			return nil, err
		}
		for i := range lines {
			lines[i].Status = order.Status
		}
	}

	order.Lines = lines
	return order, nil
}

// syncLineStatus mirrors status onto all lines of the order, retrying until it
// lands or the retry budget is spent. Exhaustion is a ConsistencyError.
func (s *OrderService) syncLineStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	dctx, cancel := s.detached(ctx)
	defer cancel()

	var err error
retry:
	for attempt := 0; attempt <= s.opts.LineSyncRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * s.opts.LineSyncBackoff
			s.log.Warn(ctx, "line_status_retry", "retrying order line status update", err,
				slog.String("order_id", orderID), slog.Int("attempt", attempt), slog.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-dctx.Done():
				err = dctx.Err()
				break retry
			}
		}
		if err = s.orders.UpdateLineStatus(dctx, orderID, status); err == nil {
			return nil
		}
	}

	cerr := &domain.ConsistencyError{Op: "mirror line status " + string(status), OrderID: orderID, Err: err}
	s.log.Critical(ctx, "line_status_diverged", "order lines do not match order status", cerr,
		slog.String("order_id", orderID), slog.String("status", string(status)))
	return cerr
}

// publish sends a status event. Delivery is best effort and failures are logged.
func (s *OrderService) publish(ctx context.Context, change port.StatusChange) {
	if s.events == nil {
		return
	}
	change.Timestamp = s.opts.Now().UTC()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.events.PublishStatusChange(sctx, change); err != nil {
		s.log.Error(ctx, "event_publish_failed", "status change event not published", err,
			slog.String("order_id", change.OrderID), slog.String("new_status", string(change.NewStatus)))
	}
}
