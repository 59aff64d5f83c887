package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/restopos/internal/core/domain"
)

const (
	cartKeyPrefix       = "cart:"
	paymentKeyPrefix    = "payment:"
	defaultCartTTL      = 24 * time.Hour
	defaultPaymentGuard = 30 * time.Second
)

// releasePaymentScript deletes the guard only when the caller still owns it,
// so an expired-and-reacquired guard is left alone.
var releasePaymentScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

// RedisAdapter keeps session carts and the in-flight payment guard.
type RedisAdapter struct {
	client     *redis.Client
	cartTTL    time.Duration
	paymentTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, cartTTL, paymentTTL time.Duration) *RedisAdapter {
	if cartTTL <= 0 {
		cartTTL = defaultCartTTL
	}
	if paymentTTL <= 0 {
		paymentTTL = defaultPaymentGuard
	}
	return &RedisAdapter{client: client, cartTTL: cartTTL, paymentTTL: paymentTTL}
}

func (r *RedisAdapter) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	raw, err := r.client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func (r *RedisAdapter) SaveCart(ctx context.Context, sessionID string, cart domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKeyPrefix+sessionID, raw, r.cartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *RedisAdapter) ClearCart(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *RedisAdapter) AcquirePayment(ctx context.Context, orderID, token string) (bool, error) {
	ok, err := r.client.SetNX(ctx, paymentKeyPrefix+orderID, token, r.paymentTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire payment guard: %w", err)
	}
	return ok, nil
}

func (r *RedisAdapter) ReleasePayment(ctx context.Context, orderID, token string) error {
	if err := releasePaymentScript.Run(ctx, r.client, []string{paymentKeyPrefix + orderID}, token).Err(); err != nil {
		return fmt.Errorf("release payment guard: %w", err)
	}
	return nil
}
