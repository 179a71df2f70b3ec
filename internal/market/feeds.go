// Package market declares the external market-data contracts the cycle
// engine reads from (§6): trending/new pool feeds, single-pair lookups,
// holder concentration and sentiment. http_feed.go adapts these against a
// DEX-aggregator-style HTTP API; fake_feed.go backs tests.
package market

import (
	"context"

	"github.com/sawpanic/paperdex/internal/types"
)

// TrendingPoolFeed returns the current trending-pool leaderboard for a
// network, consumed by the Momentum Detector.
type TrendingPoolFeed interface {
	TrendingPools(ctx context.Context, network string) ([]types.PoolSnapshot, error)
}

// NewPoolFeed returns recently-created pools for a network, consumed by the
// Early Detector.
type NewPoolFeed interface {
	NewPools(ctx context.Context, network string) ([]types.PoolSnapshot, error)
}

// PairLookupFeed resolves the best-liquidity pair for one token, consumed by
// the Token Health Checker and the broker's pre-fill quote.
type PairLookupFeed interface {
	BestPair(ctx context.Context, network, tokenAddress string) (types.Quote, error)
}

// HoldersFeed returns top-10-holder concentration for one token, an optional
// signal the Token Health Checker folds in when available.
type HoldersFeed interface {
	Top10Concentration(ctx context.Context, network, tokenAddress string) (float64, error)
}

// SentimentFeed returns the coarse market-wide sentiment reading the Regime
// Detector consumes alongside BTC dominance.
type SentimentFeed interface {
	Sentiment(ctx context.Context) (score float64, btcDominance float64, err error)
}

// PriceFeed is the minimal single-price read the Outcome Tracker's revisit
// pass needs; satisfied by PairLookupFeed via the PriceFeedAdapter below.
type PriceFeed interface {
	Price(ctx context.Context, network, tokenAddress string) (float64, error)
}

// PriceFeedAdapter adapts a PairLookupFeed into the outcome package's
// PriceFetcher, avoiding a second round-trip type for the same data.
type PriceFeedAdapter struct {
	Pairs PairLookupFeed
}

func (a PriceFeedAdapter) Price(ctx context.Context, network, tokenAddress string) (float64, error) {
	q, err := a.Pairs.BestPair(ctx, network, tokenAddress)
	if err != nil {
		return 0, err
	}
	return q.PriceUSD, nil
}
