package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/paperdex/internal/types"
)

// CachedPairLookup wraps a PairLookupFeed with a short-TTL Redis cache, so
// the health checker and the broker's pre-fill quote don't each pay for a
// separate round-trip to the same pair within one cycle.
type CachedPairLookup struct {
	feed   PairLookupFeed
	client *redis.Client
	ttl    time.Duration
}

// NewCachedPairLookup wraps feed with a Redis cache. A nil client disables
// caching and every call falls through to feed directly.
func NewCachedPairLookup(feed PairLookupFeed, client *redis.Client, ttl time.Duration) *CachedPairLookup {
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &CachedPairLookup{feed: feed, client: client, ttl: ttl}
}

func cacheKey(network, tokenAddress string) string {
	return fmt.Sprintf("paperdex:quote:%s:%s", network, tokenAddress)
}

func (c *CachedPairLookup) BestPair(ctx context.Context, network, tokenAddress string) (types.Quote, error) {
	if c.client == nil {
		return c.feed.BestPair(ctx, network, tokenAddress)
	}

	key := cacheKey(network, tokenAddress)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var q types.Quote
		if jsonErr := json.Unmarshal(raw, &q); jsonErr == nil {
			return q, nil
		}
	}

	q, err := c.feed.BestPair(ctx, network, tokenAddress)
	if err != nil {
		return q, err
	}

	if raw, marshalErr := json.Marshal(q); marshalErr == nil {
		c.client.Set(ctx, key, raw, c.ttl)
	}
	return q, nil
}
