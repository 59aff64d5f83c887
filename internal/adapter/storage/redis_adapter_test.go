package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/restopos/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestCart_SaveGetClear(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute, time.Second)
	client.Del(ctx, "cart:test-session")

	empty, err := adapter.GetCart(ctx, "test-session")
	if err != nil {
		t.Fatalf("get empty cart: %v", err)
	}
	if !empty.IsEmpty() {
		t.Errorf("expected empty cart, got %+v", empty)
	}

	cart := domain.Cart{Lines: []domain.CartLine{{ItemID: "A", ItemName: "Nasi Goreng", Quantity: 2, UnitPrice: 10000}}}
	if err := adapter.SaveCart(ctx, "test-session", cart); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := adapter.GetCart(ctx, "test-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Lines) != 1 || got.Lines[0].Quantity != 2 || got.Total() != 20000 {
		t.Errorf("unexpected cart %+v", got)
	}

	ttl := client.TTL(ctx, "cart:test-session").Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within a minute, got %v", ttl)
	}

	if err := adapter.ClearCart(ctx, "test-session"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if client.Exists(ctx, "cart:test-session").Val() != 0 {
		t.Error("expected cart key removed")
	}
}

func TestPaymentGuard_SingleHolder(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute, 5*time.Second)
	client.Del(ctx, "payment:test-order")

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ok, err := adapter.AcquirePayment(ctx, "test-order", "token-"+string(rune('a'+id)))
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if ok {
				acquired.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if acquired.Load() != 1 {
		t.Errorf("expected exactly 1 holder, got %d", acquired.Load())
	}
	client.Del(ctx, "payment:test-order")
}

func TestPaymentGuard_ReleaseOnlyByOwner(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute, 5*time.Second)
	client.Del(ctx, "payment:test-order-2")

	ok, err := adapter.AcquirePayment(ctx, "test-order-2", "owner")
	if err != nil || !ok {
		t.Fatalf("acquire: %v %v", ok, err)
	}

	if err := adapter.ReleasePayment(ctx, "test-order-2", "intruder"); err != nil {
		t.Fatalf("release by intruder: %v", err)
	}
	if client.Exists(ctx, "payment:test-order-2").Val() != 1 {
		t.Fatal("guard must survive a release with the wrong token")
	}

	if err := adapter.ReleasePayment(ctx, "test-order-2", "owner"); err != nil {
		t.Fatalf("release by owner: %v", err)
	}
	if client.Exists(ctx, "payment:test-order-2").Val() != 0 {
		t.Error("expected guard released by its owner")
	}
}
