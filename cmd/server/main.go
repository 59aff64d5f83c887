package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/restopos/internal/adapter/handler"
	"github.com/rl1809/restopos/internal/adapter/messaging"
	"github.com/rl1809/restopos/internal/adapter/storage"
	"github.com/rl1809/restopos/internal/config"
	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/core/service"
	"github.com/rl1809/restopos/internal/logger"
	"github.com/rl1809/restopos/internal/port"
)

var (
	seedTables = []domain.Table{
		{ID: "T1", Name: "Meja 1"}, {ID: "T2", Name: "Meja 2"}, {ID: "T3", Name: "Meja 3"},
		{ID: "T4", Name: "Meja 4"}, {ID: "T5", Name: "Meja 5"}, {ID: "T6", Name: "Meja 6"},
	}
	seedMenu = []domain.MenuItem{
		{ID: "nasi-goreng", Name: "Nasi Goreng", Price: 25000, Category: "makanan", Available: true},
		{ID: "mie-ayam", Name: "Mie Ayam", Price: 18000, Category: "makanan", Available: true},
		{ID: "sate-ayam", Name: "Sate Ayam", Price: 30000, Category: "makanan", Available: true},
		{ID: "es-teh", Name: "Es Teh", Price: 5000, Category: "minuman", Available: true},
		{ID: "kopi-susu", Name: "Kopi Susu", Price: 15000, Category: "minuman", Available: true},
	}
)

func main() {
	log := logger.NewLogger("order-core")
	if err := run(log); err != nil {
		log.Error(context.Background(), "server_exit", "server stopped with error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	log.Info(ctx, "mysql_connected", "connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		return err
	}
	if err := seedCatalog(ctx, mysqlAdapter, log); err != nil {
		return err
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	log.Info(ctx, "redis_connected", "connected to redis")
	redisAdapter := storage.NewRedisAdapter(rdb, cfg.CartTTL, cfg.PaymentGuardTTL)

	var events port.EventPublisher
	if cfg.AMQPURL != "" {
		publisher, err := messaging.NewRabbitMQPublisher(cfg.AMQPURL, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
		log.Info(ctx, "rabbitmq_connected", "publishing status events to "+messaging.StatusExchange)
	}

	opts := service.DefaultOptions()
	opts.StoreTimeout = cfg.StoreTimeout
	opts.CompensationTimeout = cfg.CompensationTimeout
	opts.LineSyncRetries = cfg.LineSyncRetries
	opts.LineSyncBackoff = cfg.LineSyncBackoff

	orderService := service.NewOrderService(service.Dependencies{
		Orders:       mysqlAdapter,
		Transactions: mysqlAdapter,
		Menu:         mysqlAdapter,
		Tables:       mysqlAdapter,
		Carts:        redisAdapter,
		Guard:        redisAdapter,
		Events:       events,
		Logger:       log,
	}, opts)

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.RequestIDInterceptor))
	handler.NewGRPCHandler(orderService, log).Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "grpc_listening", "gRPC server listening on "+cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(orderService, log).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(ctx, "http_listening", "HTTP server listening on "+cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info(ctx, "shutdown", "shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		grpcServer.Stop()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "http_shutdown", "HTTP server did not stop cleanly", err)
	}
	log.Info(ctx, "http_stopped", "HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info(ctx, "grpc_stopped", "gRPC server stopped")
	return nil
}

// seedCatalog fills an empty database with a default floor plan and menu.
func seedCatalog(ctx context.Context, store *storage.MySQLAdapter, log *logger.Logger) error {
	tables, err := store.ListTables(ctx)
	if err != nil {
		return err
	}
	if len(tables) > 0 {
		return nil
	}

	for _, t := range seedTables {
		if err := store.UpsertTable(ctx, t); err != nil {
			return err
		}
	}
	for _, item := range seedMenu {
		if err := store.UpsertMenuItem(ctx, item); err != nil {
			return err
		}
	}
	log.Info(ctx, "catalog_seeded", "seeded default tables and menu",
		slog.Int("tables", len(seedTables)), slog.Int("menu_items", len(seedMenu)))
	return nil
}
