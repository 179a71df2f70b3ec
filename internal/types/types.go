// Package types holds the shared value types passed between cycle engine
// components: risk state, trades, signal outcomes, calibration state, quotes
// and the smart-money inputs. None of these types own behaviour beyond small
// invariant helpers — components in sibling packages operate on them.
package types

import "time"

// Side is the direction of a simulated order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeStatus is the lifecycle state of a paper trade.
type TradeStatus string

const (
	TradeOpen      TradeStatus = "open"
	TradeClosed    TradeStatus = "closed"
	TradeCancelled TradeStatus = "cancelled"
	TradeFailed    TradeStatus = "failed"
)

// Layer is the risk layer a signal was routed to.
type Layer string

const (
	LayerCore      Layer = "core"
	LayerSatellite Layer = "satellite"
)

// SignalSource identifies which detector produced a candidate.
type SignalSource string

const (
	SourceMomentum SignalSource = "momentum"
	SourceEarly    SignalSource = "early"
)

// Regime is the coarse market classification.
type Regime string

const (
	RegimeRiskOn  Regime = "risk_on"
	RegimeRiskOff Regime = "risk_off"
	RegimeNeutral Regime = "neutral"
)

// RiskState is the one-per-user mutable risk ledger. Capital and counters are
// owned exclusively by the orchestrator/risk-gate pair; no other component
// mutates it.
type RiskState struct {
	UserID                      string
	Capital                     float64
	PnLToday                    float64
	PnLThisWeek                 float64
	TradesTodayCore             int
	TradesTodaySatellite        int
	ConsecutiveLossesSatellite  int
	IsPaused                    bool
	PauseReason                 string
	PauseUntil                  time.Time
	LastDailyResetAt            time.Time
	LastWeeklyResetAt           time.Time
}

// Clamp enforces the RiskState invariants described in §3: capital stays
// strictly positive and counters never go negative.
func (r *RiskState) Clamp() {
	if r.Capital <= 0 {
		r.Capital = 1
	}
	if r.TradesTodayCore < 0 {
		r.TradesTodayCore = 0
	}
	if r.TradesTodaySatellite < 0 {
		r.TradesTodaySatellite = 0
	}
	if r.ConsecutiveLossesSatellite < 0 {
		r.ConsecutiveLossesSatellite = 0
	}
}

// Trade is one paper position, append-on-open and update-on-close.
type Trade struct {
	ID                string
	UserID            string
	Symbol            string
	TokenAddress      string
	Network           string
	Side              Side
	Status            TradeStatus
	Layer             Layer
	Quantity          float64
	EntryPrice        float64
	ExitPrice         float64
	PnLAbs            float64
	PnLPct            float64
	IsWin             bool
	FeesAbs           float64
	SlippageSimulated float64
	GasSimulated      float64
	LatencyMs         int64
	EntryReason       string
	ExitReason        string
	EnteredAt         time.Time
	ClosedAt          time.Time
	Metadata          map[string]interface{}
}

// Close finalises a trade per the §3 invariant: a closed trade always carries
// exit price, realised pnl, the win flag and a close timestamp together.
func (t *Trade) Close(exitPrice float64, reason string, closedAt time.Time) {
	t.ExitPrice = exitPrice
	t.PnLAbs = (exitPrice - t.EntryPrice) * t.Quantity
	if t.EntryPrice != 0 {
		t.PnLPct = (exitPrice/t.EntryPrice - 1) * 100
	}
	t.IsWin = t.PnLPct > 0
	t.ExitReason = reason
	t.ClosedAt = closedAt
	t.Status = TradeClosed
}

// OutcomeWindow is one of the five fixed horizons the outcome tracker
// revisits after a signal is emitted.
type OutcomeWindow string

const (
	Window1h  OutcomeWindow = "1h"
	Window6h  OutcomeWindow = "6h"
	Window24h OutcomeWindow = "24h"
	Window48h OutcomeWindow = "48h"
	Window7d  OutcomeWindow = "7d"
)

// AllWindows lists the five tracked horizons in elapsed order.
var AllWindows = []OutcomeWindow{Window1h, Window6h, Window24h, Window48h, Window7d}

// WindowDelay returns how long after emission a window elapses.
func WindowDelay(w OutcomeWindow) time.Duration {
	switch w {
	case Window1h:
		return time.Hour
	case Window6h:
		return 6 * time.Hour
	case Window24h:
		return 24 * time.Hour
	case Window48h:
		return 48 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// SignalOutcome is an append-then-update record tracking a signal's forward
// price regardless of whether it was executed.
type SignalOutcome struct {
	ID             string
	UserID         string
	SignalKey      string
	TokenAddress   string
	Network        string
	Layer          Layer
	Confidence     float64
	RegimeAtEmit   Regime
	EntryPrice     float64
	WasExecuted    bool
	RejectReason   string
	Reasons        []string
	SignalSource   SignalSource
	EmittedAt      time.Time
	Prices         map[OutcomeWindow]float64
	PnLPcts        map[OutcomeWindow]float64
	ChecksDone     int
	FullyTracked   bool
	Metadata       map[string]interface{}
}

// RecordWindow writes a window's price/pnl exactly once; subsequent calls for
// an already-filled window are no-ops, preserving the idempotence property.
func (o *SignalOutcome) RecordWindow(w OutcomeWindow, price float64) {
	if o.Prices == nil {
		o.Prices = map[OutcomeWindow]float64{}
	}
	if o.PnLPcts == nil {
		o.PnLPcts = map[OutcomeWindow]float64{}
	}
	if _, already := o.Prices[w]; already {
		return
	}
	o.Prices[w] = price
	if o.EntryPrice != 0 {
		o.PnLPcts[w] = (price/o.EntryPrice - 1) * 100
	}
	o.ChecksDone++
	if len(o.Prices) >= len(AllWindows) {
		o.FullyTracked = true
	}
}

// CalibrationState is the one-per-user adaptive tuning record. Only the
// Calibrator mutates it; the Orchestrator reads it at the start of every
// cycle.
type CalibrationState struct {
	UserID                  string
	MomentumScoreThreshold  float64
	EarlyScoreThreshold     float64
	CoreMinConfidence       float64
	SatelliteMinConfidence  float64
	HitRateCore             float64
	HitRateSatellite        float64
	ProfitFactorCore        float64
	ProfitFactorSatellite   float64
	MomentumExposurePct     float64
	EarlyExposurePct        float64
	TokenOverlapPct         float64
	DetectorPF              map[SignalSource]float64
	DetectorHitRate         map[SignalSource]float64
	DetectorBias            map[SignalSource]string
	LastCalibratedAt        time.Time
}

// DefaultCalibrationState returns the bootstrap thresholds named in §4.13/§6.
func DefaultCalibrationState(userID string) CalibrationState {
	return CalibrationState{
		UserID:                 userID,
		MomentumScoreThreshold: 55,
		EarlyScoreThreshold:    50,
		CoreMinConfidence:      75,
		SatelliteMinConfidence: 50,
		DetectorPF:             map[SignalSource]float64{},
		DetectorHitRate:        map[SignalSource]float64{},
		DetectorBias:           map[SignalSource]string{},
	}
}

// RegimeSnapshot is an append-only record of a regime classification.
type RegimeSnapshot struct {
	ID              string
	UserID          string
	Regime          Regime
	SentimentScore  float64
	BTCDominance    float64
	Metadata        map[string]interface{}
	DetectedAt      time.Time
}

// TrackedWallet is a synthetic smart-money wallet seeded by the simulator.
type TrackedWallet struct {
	WalletID          string
	Style             string
	WinRate           float64
	PreferredNetworks []string
}

// WalletScore is the latest reputation score for a tracked wallet.
type WalletScore struct {
	WalletID  string
	Score     float64
	UpdatedAt time.Time
}

// WalletMovement is one simulated buy/sell emitted by the smart-money
// simulator for a (wallet, token) pair on a given day.
type WalletMovement struct {
	ID           string
	WalletID     string
	TokenAddress string
	Network      string
	Direction    Side
	AmountUSD    float64
	OccurredAt   time.Time
}

// TokenHealthSnapshot is the persisted output of the Token Health Checker.
type TokenHealthSnapshot struct {
	TokenAddress     string
	Network          string
	LiquidityUSD     float64
	Volume24h        float64
	PriceUSD         float64
	SpreadPct        float64
	ConcentrationTop10 float64
	RiskFlags        []string
	HealthScore      float64
	PairAgeHours     float64
	CreatedAt        time.Time
}

// Quote is the transient market read the friction models and broker consume;
// it is never persisted on its own.
type Quote struct {
	TokenAddress    string
	Network         string
	PriceUSD        float64
	LiquidityUSD    float64
	Volume24h       float64
	PriceChange1h   float64
	PriceChange24h  float64
	PairAgeHours    float64
	H24Buys         int64
	H24Sells        int64
	UniqueBuyers24h int64
	UniqueSellers24h int64
}

// WindowStats carries one metric sampled over a single feed window.
type WindowStats struct {
	Volume          float64
	PriceChangePct  float64
	Buys            int64
	Sells           int64
	UniqueBuyers    int64
	UniqueSellers   int64
}

// PoolSnapshot is the multi-window pool record returned by the trending-pool
// and new-pool feeds: one row per {m5, h1, h6, h24} window, per §6.
type PoolSnapshot struct {
	TokenAddress  string
	Symbol        string
	Network       string
	PriceUSD      float64
	LiquidityUSD  float64
	FDV           float64
	MarketCap     float64
	CreatedAt     time.Time
	M5            WindowStats
	H1            WindowStats
	H6            WindowStats
	H24           WindowStats
}

// AgeHours is the pair's age relative to now.
func (p PoolSnapshot) AgeHours(now time.Time) float64 {
	if p.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(p.CreatedAt).Hours()
}
