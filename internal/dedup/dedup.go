// Package dedup short-circuits redelivered n8n callbacks. n8n retries webhook
// deliveries on its own schedule, and the receivers' terminal writes are
// absolute assignments, so a redelivery is harmless; this guard just makes it
// a cheap 200 instead of a second round of storage mirroring.
package dedup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyTTL = 24 * time.Hour

type Guard struct {
	client *redis.Client
}

func New(redisURL string) (*Guard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Guard{client: client}, nil
}

func (g *Guard) Close() error {
	return g.client.Close()
}

// Seen reports whether a delivery key was already processed. Fails open:
// Redis trouble means "not seen", never a rejected webhook.
func (g *Guard) Seen(ctx context.Context, key string) bool {
	n, err := g.client.Exists(ctx, "webhook:"+key).Result()
	if err != nil {
		log.Printf("[Dedup] exists check failed (failing open): %v", err)
		return false
	}
	return n > 0
}

// MarkProcessed records a delivery key after the row write succeeded, so a
// crashed delivery stays retryable. Errors are absorbed.
func (g *Guard) MarkProcessed(ctx context.Context, key string) {
	if err := g.client.Set(ctx, "webhook:"+key, 1, keyTTL).Err(); err != nil {
		log.Printf("[Dedup] mark failed: %v", err)
	}
}
