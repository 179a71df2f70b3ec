package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/paperdex/internal/net/budget"
	"github.com/sawpanic/paperdex/internal/net/circuit"
	"github.com/sawpanic/paperdex/internal/net/ratelimit"
	"github.com/sawpanic/paperdex/internal/types"
)

// HTTPFeed implements TrendingPoolFeed, NewPoolFeed, PairLookupFeed,
// HoldersFeed and SentimentFeed against a DEX-aggregator-style JSON API, behind the same
// per-host rate limiter, circuit breaker and daily budget tracker pairing
// used elsewhere in this codebase for free-tier provider calls.
type HTTPFeed struct {
	baseURL string
	client  *http.Client
	limiter *ratelimit.Limiter
	breaker *circuit.Breaker
	budget  *budget.Tracker
	log     zerolog.Logger
}

// NewHTTPFeed wires a feed against baseURL with the given rate-limit,
// circuit-breaker and daily-budget policy. budgetTracker may be nil to skip
// budget enforcement.
func NewHTTPFeed(baseURL string, client *http.Client, limiter *ratelimit.Limiter, breaker *circuit.Breaker, budgetTracker *budget.Tracker, log zerolog.Logger) *HTTPFeed {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFeed{baseURL: baseURL, client: client, limiter: limiter, breaker: breaker, budget: budgetTracker, log: log}
}

type poolResponse struct {
	Pairs []poolPair `json:"pairs"`
}

type poolPair struct {
	TokenAddress string  `json:"tokenAddress"`
	Symbol       string  `json:"symbol"`
	Network      string  `json:"network"`
	PriceUSD     string  `json:"priceUsd"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	FDV          float64 `json:"fdv"`
	MarketCap    float64 `json:"marketCap"`
	CreatedAtMs  int64   `json:"pairCreatedAt"`
	Volume       windowValues `json:"volume"`
	PriceChange  windowValues `json:"priceChange"`
	Txns         windowTxns   `json:"txns"`
}

type windowValues struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type txCount struct {
	Buys  int64 `json:"buys"`
	Sells int64 `json:"sells"`
}

type windowTxns struct {
	M5  txCount `json:"m5"`
	H1  txCount `json:"h1"`
	H6  txCount `json:"h6"`
	H24 txCount `json:"h24"`
}

func (p poolPair) toSnapshot() types.PoolSnapshot {
	price, _ := strconv.ParseFloat(p.PriceUSD, 64)
	return types.PoolSnapshot{
		TokenAddress: p.TokenAddress,
		Symbol:       p.Symbol,
		Network:      p.Network,
		PriceUSD:     price,
		LiquidityUSD: p.LiquidityUSD,
		FDV:          p.FDV,
		MarketCap:    p.MarketCap,
		CreatedAt:    time.UnixMilli(p.CreatedAtMs).UTC(),
		M5:           windowStats(p.Volume.M5, 0, p.Txns.M5),
		H1:           windowStats(p.Volume.H1, p.PriceChange.H1, p.Txns.H1),
		H6:           windowStats(p.Volume.H6, p.PriceChange.H6, p.Txns.H6),
		H24:          windowStats(p.Volume.H24, p.PriceChange.H24, p.Txns.H24),
	}
}

func windowStats(volume, priceChangePct float64, tx txCount) types.WindowStats {
	return types.WindowStats{
		Volume:         volume,
		PriceChangePct: priceChangePct,
		Buys:           tx.Buys,
		Sells:          tx.Sells,
	}
}

func (f *HTTPFeed) getJSON(ctx context.Context, path string, out interface{}) error {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return fmt.Errorf("market: parse base url: %w", err)
	}
	u.Path = u.Path + path

	if f.budget != nil {
		if err := f.budget.Allow(); err != nil {
			var warn *budget.BudgetWarningError
			if !errors.As(err, &warn) {
				return fmt.Errorf("market: daily budget: %w", err)
			}
			f.log.Warn().Err(err).Msg("daily budget nearing its limit")
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Host); err != nil {
			return fmt.Errorf("market: rate limit wait: %w", err)
		}
	}

	call := func(ctx context.Context) error {
		if f.budget != nil {
			if err := f.budget.Consume(); err != nil {
				var warn *budget.BudgetWarningError
				if !errors.As(err, &warn) {
					return fmt.Errorf("market: consume budget: %w", err)
				}
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("market: http %d from %s", resp.StatusCode, u.Host)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	if f.breaker != nil {
		if err := f.breaker.Call(ctx, call); err != nil {
			return fmt.Errorf("market: %w", err)
		}
		return nil
	}
	return call(ctx)
}

func (f *HTTPFeed) TrendingPools(ctx context.Context, network string) ([]types.PoolSnapshot, error) {
	var resp poolResponse
	if err := f.getJSON(ctx, "/pairs/trending/"+network, &resp); err != nil {
		f.log.Warn().Err(err).Str("network", network).Msg("trending pools fetch failed")
		return nil, err
	}
	out := make([]types.PoolSnapshot, len(resp.Pairs))
	for i, p := range resp.Pairs {
		out[i] = p.toSnapshot()
	}
	return out, nil
}

func (f *HTTPFeed) NewPools(ctx context.Context, network string) ([]types.PoolSnapshot, error) {
	var resp poolResponse
	if err := f.getJSON(ctx, "/pairs/new/"+network, &resp); err != nil {
		f.log.Warn().Err(err).Str("network", network).Msg("new pools fetch failed")
		return nil, err
	}
	out := make([]types.PoolSnapshot, len(resp.Pairs))
	for i, p := range resp.Pairs {
		out[i] = p.toSnapshot()
	}
	return out, nil
}

func (f *HTTPFeed) BestPair(ctx context.Context, network, tokenAddress string) (types.Quote, error) {
	var resp poolResponse
	if err := f.getJSON(ctx, "/tokens/"+network+"/"+tokenAddress, &resp); err != nil {
		return types.Quote{}, err
	}
	if len(resp.Pairs) == 0 {
		return types.Quote{}, fmt.Errorf("market: no pair found for %s on %s", tokenAddress, network)
	}

	best := resp.Pairs[0]
	for _, p := range resp.Pairs[1:] {
		if p.LiquidityUSD > best.LiquidityUSD {
			best = p
		}
	}

	price, _ := strconv.ParseFloat(best.PriceUSD, 64)
	return types.Quote{
		TokenAddress:     tokenAddress,
		Network:          network,
		PriceUSD:         price,
		LiquidityUSD:     best.LiquidityUSD,
		Volume24h:        best.Volume.H24,
		PriceChange1h:    best.PriceChange.H1,
		PriceChange24h:   best.PriceChange.H24,
		PairAgeHours:     time.Since(time.UnixMilli(best.CreatedAtMs)).Hours(),
		H24Buys:          best.Txns.H24.Buys,
		H24Sells:         best.Txns.H24.Sells,
		UniqueBuyers24h:  best.Txns.H24.Buys,
		UniqueSellers24h: best.Txns.H24.Sells,
	}, nil
}

type holdersResponse struct {
	Top10Pct float64 `json:"top10Pct"`
}

func (f *HTTPFeed) Top10Concentration(ctx context.Context, network, tokenAddress string) (float64, error) {
	var resp holdersResponse
	if err := f.getJSON(ctx, "/holders/"+network+"/"+tokenAddress, &resp); err != nil {
		return 0, err
	}
	return resp.Top10Pct, nil
}

type sentimentResponse struct {
	Score        float64 `json:"score"`
	BTCDominance float64 `json:"btcDominance"`
}

func (f *HTTPFeed) Sentiment(ctx context.Context) (float64, float64, error) {
	var resp sentimentResponse
	if err := f.getJSON(ctx, "/sentiment/global", &resp); err != nil {
		return 0, 0, err
	}
	return resp.Score, resp.BTCDominance, nil
}
