package cache

import (
	"context"
	"time"

	"bill-backend/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// BillKeyPrefix namespaces cached bill bodies
const BillKeyPrefix = "bill:"

// DefaultTTL applies when Init is given no TTL
const DefaultTTL = 10 * time.Minute

var (
	client *redis.Client
	ttl    = DefaultTTL
)

// Init connects to Redis. On failure the client stays nil and every cache
// call below becomes a miss/no-op.
func Init(addr, password string, billTTL time.Duration) error {
	if billTTL > 0 {
		ttl = billTTL
	}

	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// Close releases the connection, if any
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// GetClient returns the Redis client, nil when caching is off
func GetClient() *redis.Client {
	return client
}

// BillKey is the cache key for one bill
func BillKey(invoiceNumber string) string {
	return BillKeyPrefix + invoiceNumber
}

// GetCachedBill returns the cached JSON body of a bill
func GetCachedBill(ctx context.Context, invoiceNumber string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, ok := GetCached(ctx, BillKey(invoiceNumber))
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return data, ok
}

// CacheBill stores the JSON body of a bill for the configured TTL
func CacheBill(ctx context.Context, invoiceNumber string, data []byte) {
	SetCached(ctx, BillKey(invoiceNumber), data, ttl)
}

// InvalidateBill drops a bill after it is written
func InvalidateBill(ctx context.Context, invoiceNumber string) {
	InvalidateKeys(ctx, BillKey(invoiceNumber))
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
