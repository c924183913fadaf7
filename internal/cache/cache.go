// Package cache holds the optional read-through cache for project listings.
// The catalog service invalidates it wholesale on every mutation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolioapi/internal/config"
	"portfolioapi/internal/model"
)

const (
	// catalog:projects:g<generation>:{all|cat:<category>}
	listKeyPrefix = "catalog:projects:"
	generationKey = "catalog:projects:generation"
)

// ProjectLists caches List / ListByCategory results.
//
// Entries are scoped to a generation. Readers take the generation before querying the
// store and write under it; Invalidate moves to a new generation, so a listing read
// before a mutation can be stored afterwards but is never served again.
type ProjectLists interface {
	// Generation returns the current generation.
	Generation(ctx context.Context) (int64, error)
	// Get reports a hit with ok=true. An empty category means the unfiltered list.
	Get(ctx context.Context, gen int64, category string) (items []model.Project, ok bool, err error)
	Set(ctx context.Context, gen int64, category string, items []model.Project) error
	// Invalidate retires every cached listing.
	Invalidate(ctx context.Context) error
}

// Nop never hits.
type Nop struct{}

func (Nop) Generation(context.Context) (int64, error) { return 0, nil }
func (Nop) Get(context.Context, int64, string) ([]model.Project, bool, error) {
	return nil, false, nil
}
func (Nop) Set(context.Context, int64, string, []model.Project) error { return nil }
func (Nop) Invalidate(context.Context) error                          { return nil }

// Redis stores listings as JSON strings. Retired generations are never read
// again and expire with their TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Open connects to cfg.Addr and pings it. It returns Nop when no address is configured.
func Open(ctx context.Context, cfg config.RedisConfig) (ProjectLists, func() error, error) {
	if cfg.Addr == "" {
		return Nop{}, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(client, cfg.TTL), client.Close, nil
}

func listKey(gen int64, category string) string {
	prefix := listKeyPrefix + "g" + strconv.FormatInt(gen, 10) + ":"
	if category == "" {
		return prefix + "all"
	}
	return prefix + "cat:" + category
}

func (r *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (r *Redis) Get(ctx context.Context, gen int64, category string) ([]model.Project, bool, error) {
	data, err := r.client.Get(ctx, listKey(gen, category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached list: %w", err)
	}
	var items []model.Project
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached list: %w", err)
	}
	return items, true, nil
}

func (r *Redis) Set(ctx context.Context, gen int64, category string, items []model.Project) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal list: %w", err)
	}
	if err := r.client.Set(ctx, listKey(gen, category), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache list: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate lists: %w", err)
	}
	return nil
}
