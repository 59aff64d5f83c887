package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/restopos/internal/adapter/storage"
	"github.com/rl1809/restopos/internal/config"
	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/core/service"
	"github.com/rl1809/restopos/internal/logger"
)

const (
	cashiers = 50
	tableID  = "stress-table"
	itemID   = "stress-item"
)

func main() {
	ctx := context.Background()
	log := logger.NewLogger("stress-test")

	cfg, err := config.Load(".env")
	if err != nil {
		fail("load config: %v", err)
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		fail("failed to connect mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cashiers)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: cashiers})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fail("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		fail("migrate: %v", err)
	}
	redisAdapter := storage.NewRedisAdapter(rdb, time.Minute, 10*time.Second)

	mysqlAdapter.UpsertTable(ctx, domain.Table{ID: tableID, Name: "Stress"})
	mysqlAdapter.UpsertMenuItem(ctx, domain.MenuItem{ID: itemID, Name: "Paket Hemat", Price: 45000, Available: true})

	orderService := service.NewOrderService(service.Dependencies{
		Orders:       mysqlAdapter,
		Transactions: mysqlAdapter,
		Menu:         mysqlAdapter,
		Tables:       mysqlAdapter,
		Carts:        redisAdapter,
		Guard:        redisAdapter,
		Logger:       log,
	}, service.DefaultOptions())

	// Settle anything left on the table by an earlier run so it is free again.
	leftovers, _ := mysqlAdapter.ListOrders(ctx, domain.OrderFilter{
		TableID:  tableID,
		Statuses: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProses},
	})
	for _, o := range leftovers {
		orderService.AdvanceStatus(ctx, o.ID, domain.OrderStatusCancelled, domain.RoleAdmin)
	}

	order, err := orderService.SubmitOrder(ctx, service.SubmitOrderRequest{
		Cart:         domain.Cart{Lines: []domain.CartLine{{ItemID: itemID, Quantity: 1}}},
		TableID:      tableID,
		CustomerName: "stress-" + uuid.NewString()[:8],
	})
	if err != nil {
		fail("submit order: %v", err)
	}
	if _, err := orderService.AdvanceStatus(ctx, order.ID, domain.OrderStatusProses, domain.RoleWaiter); err != nil {
		fail("accept order: %v", err)
	}

	// Counters
	var paid, alreadyPaid, inProgress, other atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cashiers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := orderService.Pay(ctx, service.PayRequest{
				OrderID:    order.ID,
				Method:     domain.PaymentCash,
				Tendered:   50000,
				OperatorID: fmt.Sprintf("kasir-%d", n),
			})
			switch {
			case err == nil:
				paid.Add(1)
			case errors.Is(err, domain.ErrAlreadyPaid):
				alreadyPaid.Add(1)
			case errors.Is(err, domain.ErrPaymentInProgress):
				inProgress.Add(1)
			default:
				other.Add(1)
				fmt.Printf("cashier %d: unexpected error: %v\n", n, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	var stored int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE order_id = ?`, order.ID).Scan(&stored); err != nil {
		fail("count transactions: %v", err)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Order:            %s (total %s)\n", order.ID, order.Total)
	fmt.Printf("Cashiers:         %d\n", cashiers)
	fmt.Printf("Paid:             %d\n", paid.Load())
	fmt.Printf("Already paid:     %d\n", alreadyPaid.Load())
	fmt.Printf("In progress:      %d\n", inProgress.Load())
	fmt.Printf("Other errors:     %d\n", other.Load())
	fmt.Printf("Stored txns:      %d\n", stored)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if paid.Load() == 1 && stored == 1 && other.Load() == 0 {
		fmt.Println("PASS: exactly one payment recorded")
		return
	}
	fmt.Printf("FAIL: expected 1 payment and 1 stored transaction, got %d/%d\n", paid.Load(), stored)
	os.Exit(1)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
