// Package smartmoney simulates a fixed roster of synthetic "smart money"
// wallets whose buy signals feed the Confluence Engine, per §4.5.
package smartmoney

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sawpanic/paperdex/internal/types"
)

// Style is the behavioural archetype of a tracked wallet.
type Style string

const (
	StyleAlpha       Style = "alpha"
	StyleMomentum    Style = "momentum"
	StyleEarlySniper Style = "early_sniper"
	StyleWhale       Style = "whale"
)

const (
	baseAmountEarly    = 500.0
	baseAmountTrending = 2000.0
	minSimulatedScore  = 70.0
)

// Candidate is one token a cycle considers feeding through the simulator.
type Candidate struct {
	TokenAddress string
	Network      string
	Score        float64 // the originating detector's 0-100 score
	IsEarly      bool
}

// Movement is an emitted simulated buy for one (wallet, token, day).
type Movement struct {
	WalletID     string
	TokenAddress string
	Network      string
	Direction    types.Side
	AmountUSD    float64
	Rand         float64
	StyleMatch   float64
}

// roster is the fixed list of ~6 synthetic wallets. Every wallet's score is
// pinned at or above minSimulatedScore so Confluence always counts it.
var roster = []types.TrackedWallet{
	{WalletID: "wallet-alpha-1", Style: string(StyleAlpha), WinRate: 0.58, PreferredNetworks: []string{"ethereum", "base", "arbitrum"}},
	{WalletID: "wallet-momentum-1", Style: string(StyleMomentum), WinRate: 0.54, PreferredNetworks: []string{"base", "bsc", "polygon"}},
	{WalletID: "wallet-momentum-2", Style: string(StyleMomentum), WinRate: 0.51, PreferredNetworks: []string{"ethereum", "arbitrum"}},
	{WalletID: "wallet-sniper-1", Style: string(StyleEarlySniper), WinRate: 0.46, PreferredNetworks: []string{"solana", "base"}},
	{WalletID: "wallet-sniper-2", Style: string(StyleEarlySniper), WinRate: 0.43, PreferredNetworks: []string{"solana", "bsc"}},
	{WalletID: "wallet-whale-1", Style: string(StyleWhale), WinRate: 0.60, PreferredNetworks: []string{"ethereum", "base", "solana", "arbitrum", "bsc", "polygon"}},
}

// Roster returns the fixed synthetic wallet list.
func Roster() []types.TrackedWallet {
	out := make([]types.TrackedWallet, len(roster))
	copy(out, roster)
	return out
}

// ScoreFor returns the pinned reputation score for a tracked wallet; every
// simulated wallet is held at or above minSimulatedScore.
func ScoreFor(walletID string) types.WalletScore {
	return types.WalletScore{WalletID: walletID, Score: minSimulatedScore}
}

func networkMatches(wallet types.TrackedWallet, network string) bool {
	for _, n := range wallet.PreferredNetworks {
		if n == network {
			return true
		}
	}
	return false
}

// deterministicRand derives a uniform draw in [0,1) from (walletID, token,
// day) alone — the same inputs always yield the same draw.
func deterministicRand(walletID, tokenAddress string, day time.Time) float64 {
	key := walletID + "|" + tokenAddress + "|" + day.UTC().Format("2006-01-02")
	h := xxhash.Sum64String(key)
	first32 := uint32(h >> 32)
	return float64(first32) / float64(uint64(1)<<32)
}

// styleMatch expresses how well a wallet's style fits the candidate's
// discovery channel (early vs trending) and its detector confidence.
func styleMatch(style Style, isEarly bool, score float64) float64 {
	scoreFrac := score / 100
	switch style {
	case StyleEarlySniper:
		if isEarly {
			return 1.0
		}
		return 0.2
	case StyleMomentum:
		if !isEarly {
			return 1.0
		}
		return 0.2
	case StyleWhale:
		if score >= 80 {
			return 1.0
		}
		return clamp(scoreFrac*0.6, 0, 1)
	case StyleAlpha:
		return clamp(0.5+scoreFrac*0.5, 0, 1)
	default:
		return 0.3
	}
}

func baseAmount(isEarly bool) float64 {
	if isEarly {
		return baseAmountEarly
	}
	return baseAmountTrending
}

// Simulate runs every roster wallet whose preferred networks include the
// candidate's network through the deterministic draw, returning one
// Movement per wallet that clears its threshold.
func Simulate(c Candidate, day time.Time) []Movement {
	var movements []Movement
	for _, wallet := range roster {
		if !networkMatches(wallet, c.Network) {
			continue
		}
		match := styleMatch(Style(wallet.Style), c.IsEarly, c.Score)
		threshold := 0.7 - match*0.4
		r := deterministicRand(wallet.WalletID, c.TokenAddress, day)
		if r <= threshold {
			continue
		}
		amount := baseAmount(c.IsEarly) * (0.5 + c.Score/100*1.5) * (0.8 + r*0.4)
		movements = append(movements, Movement{
			WalletID:     wallet.WalletID,
			TokenAddress: c.TokenAddress,
			Network:      c.Network,
			Direction:    types.SideBuy,
			AmountUSD:    amount,
			Rand:         r,
			StyleMatch:   match,
		})
	}
	return movements
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
