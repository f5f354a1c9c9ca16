package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/config"
	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix    = "reorden:summary"
	summaryScanBatchLen = 100
)

// SummaryCache caches computed reorder summaries keyed by dataset and
// ledger version plus the active filters. The planner invalidates it
// on every load and on every recorded purchase.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]domain.SummaryRow, bool, error)
	Set(ctx context.Context, key string, rows []domain.SummaryRow) error
	InvalidateAll(ctx context.Context) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(cfg config.CacheConfig) (SummaryCache, error) {
	if !cfg.Enabled {
		return &noopSummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSummaryCache{client: client, ttl: ttl}, nil
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

// SummaryKey builds the cache key for one summary computation. The
// version changes on every dataset load and purchase registration,
// which makes stale entries unreachable even before their TTL.
func SummaryKey(version int64, warehouses, products []string) string {
	parts := []string{fmt.Sprintf("v=%d", version)}

	if len(warehouses) > 0 {
		sorted := append([]string(nil), warehouses...)
		sort.Strings(sorted)
		parts = append(parts, "w="+strings.Join(sorted, "|"))
	}
	if len(products) > 0 {
		sorted := append([]string(nil), products...)
		sort.Strings(sorted)
		parts = append(parts, "p="+strings.Join(sorted, "|"))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, ";")))
	return fmt.Sprintf("%s:%s", summaryKeyPrefix, hex.EncodeToString(sum[:]))
}

func (c *redisSummaryCache) Get(ctx context.Context, key string) ([]domain.SummaryRow, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rows []domain.SummaryRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, fmt.Errorf("decode summary cache: %w", err)
	}
	return rows, true, nil
}

func (c *redisSummaryCache) Set(ctx context.Context, key string, rows []domain.SummaryRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode summary cache: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, summaryKeyPrefix, summaryScanBatchLen)
}

func (n *noopSummaryCache) Get(ctx context.Context, key string) ([]domain.SummaryRow, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) Set(ctx context.Context, key string, rows []domain.SummaryRow) error {
	return nil
}

func (n *noopSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}
