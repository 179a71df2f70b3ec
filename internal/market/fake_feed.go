package market

import (
	"context"

	"github.com/sawpanic/paperdex/internal/types"
)

// FakeFeed is an in-memory feed backing unit and orchestrator tests.
type FakeFeed struct {
	Trending map[string][]types.PoolSnapshot
	New      map[string][]types.PoolSnapshot
	Pairs    map[string]types.Quote // keyed by network+"|"+tokenAddress
	Holders  map[string]float64
	SentimentScore, BTCDominance float64
	Err      error
}

// NewFakeFeed returns an empty fake feed.
func NewFakeFeed() *FakeFeed {
	return &FakeFeed{
		Trending: map[string][]types.PoolSnapshot{},
		New:      map[string][]types.PoolSnapshot{},
		Pairs:    map[string]types.Quote{},
		Holders:  map[string]float64{},
	}
}

func pairKey(network, tokenAddress string) string { return network + "|" + tokenAddress }

func (f *FakeFeed) SetPair(network, tokenAddress string, q types.Quote) {
	f.Pairs[pairKey(network, tokenAddress)] = q
}

func (f *FakeFeed) TrendingPools(ctx context.Context, network string) ([]types.PoolSnapshot, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Trending[network], nil
}

func (f *FakeFeed) NewPools(ctx context.Context, network string) ([]types.PoolSnapshot, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.New[network], nil
}

func (f *FakeFeed) BestPair(ctx context.Context, network, tokenAddress string) (types.Quote, error) {
	if f.Err != nil {
		return types.Quote{}, f.Err
	}
	return f.Pairs[pairKey(network, tokenAddress)], nil
}

func (f *FakeFeed) Top10Concentration(ctx context.Context, network, tokenAddress string) (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Holders[pairKey(network, tokenAddress)], nil
}

func (f *FakeFeed) Sentiment(ctx context.Context) (float64, float64, error) {
	if f.Err != nil {
		return 0, 0, f.Err
	}
	return f.SentimentScore, f.BTCDominance, nil
}
