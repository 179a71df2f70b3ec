package orchestrator

import (
	"context"
	"time"

	"github.com/sawpanic/paperdex/internal/clock"
	"github.com/sawpanic/paperdex/internal/confluence"
	"github.com/sawpanic/paperdex/internal/market"
	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
)

// quoteAdapter turns a PairLookupFeed's value-typed Quote into the pointer
// shape the health checker and broker expect, satisfying both health.PairLookup
// and broker.QuoteFetcher from the one underlying feed call.
type quoteAdapter struct {
	feed market.PairLookupFeed
}

func (a quoteAdapter) BestPair(ctx context.Context, network, tokenAddress string) (*types.Quote, error) {
	q, err := a.feed.BestPair(ctx, network, tokenAddress)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (a quoteAdapter) Quote(ctx context.Context, network, tokenAddress string) (*types.Quote, error) {
	return a.BestPair(ctx, network, tokenAddress)
}

// minWalletScoreForConfluence mirrors confluence's own unexported threshold;
// duplicated here since the lookup that filters by it lives on the storage
// side of the boundary, not inside the confluence package itself.
const minWalletScoreForConfluence = 70.0

// walletConfluenceLookup implements confluence.WalletConfluenceLookup against
// the wallet repo: buy movements within the window, restricted to wallets
// whose latest score clears the confluence threshold.
type walletConfluenceLookup struct {
	wallets storage.WalletRepo
	clk     clock.Clock
}

func (w walletConfluenceLookup) Lookup(ctx context.Context, tokenAddress, network string, since time.Time) (confluence.WalletConfluence, error) {
	movements, err := w.wallets.ListMovements(ctx, tokenAddress, storage.TimeRange{From: since, To: w.clk.Now()})
	if err != nil {
		return confluence.WalletConfluence{}, err
	}

	var wc confluence.WalletConfluence
	seen := map[string]bool{}
	for _, m := range movements {
		if m.Network != network || m.Direction != types.SideBuy {
			continue
		}
		score, err := w.wallets.GetScore(ctx, m.WalletID)
		if err != nil || score == nil || score.Score < minWalletScoreForConfluence {
			continue
		}
		wc.TotalUSD += m.AmountUSD
		wc.AvgScore = (wc.AvgScore*float64(wc.Count) + score.Score) / float64(wc.Count+1)
		wc.Count++
		if !seen[m.WalletID] {
			seen[m.WalletID] = true
			wc.WalletIDs = append(wc.WalletIDs, m.WalletID)
		}
	}
	return wc, nil
}
