// Package orchestrator sequences one full cycle per user, per §4.14: regime
// detection, calibration, the momentum and early pipelines through
// confluence and the risk-gated entry sub-routine, pending-outcome revisits,
// and position exits. Component failures never abort a cycle outright — they
// are recorded on the CycleResult and the cycle continues, per §6's "no data
// this cycle" posture; only an errkind.Logic error aborts the current user.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/paperdex/internal/broker"
	"github.com/sawpanic/paperdex/internal/calibration"
	"github.com/sawpanic/paperdex/internal/clock"
	"github.com/sawpanic/paperdex/internal/confluence"
	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/early"
	"github.com/sawpanic/paperdex/internal/errkind"
	"github.com/sawpanic/paperdex/internal/health"
	"github.com/sawpanic/paperdex/internal/market"
	"github.com/sawpanic/paperdex/internal/momentum"
	"github.com/sawpanic/paperdex/internal/outcome"
	"github.com/sawpanic/paperdex/internal/performance"
	"github.com/sawpanic/paperdex/internal/position"
	"github.com/sawpanic/paperdex/internal/predictor"
	"github.com/sawpanic/paperdex/internal/regime"
	"github.com/sawpanic/paperdex/internal/risk"
	"github.com/sawpanic/paperdex/internal/smartmoney"
	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
	"github.com/sawpanic/paperdex/internal/xrand"
)

const (
	rolling30dWindow   = 30 * 24 * time.Hour
	calibrationLookback = 200
	pendingRevisitLimit = 1000

	minTicketCore      = 25.0
	minTicketSatellite = 15.0
	liquidityCapCore       = 0.005
	liquidityCapSatellite  = 0.003
)

// CycleResult summarises one user's cycle, per §4.14 step 7.
type CycleResult struct {
	UserID           string
	Regime           types.Regime
	StartedAt        time.Time
	FinishedAt       time.Time
	SignalsEvaluated int
	TradesOpened     int
	TradesClosed     int
	OutcomesEmitted  int
	OutcomesRevisited int
	Errors           []string
	Partial          bool
}

func (c *CycleResult) recordErr(phase string, err error) {
	if err == nil {
		return
	}
	c.Errors = append(c.Errors, fmt.Sprintf("%s: %v", phase, err))
}

// Orchestrator wires every cycle-engine component behind one set of feeds,
// one storage handle and one clock/RNG pair, per §5's shared-resource model.
type Orchestrator struct {
	cfg config.Config
	repo storage.Repository

	trending market.TrendingPoolFeed
	newPools market.NewPoolFeed
	pairs    market.PairLookupFeed
	holders  market.HoldersFeed
	sentiment market.SentimentFeed

	clk clock.Clock
	rng xrand.Source
	log zerolog.Logger

	regimeDetector *regime.Detector
	riskGate       *risk.Gate
	confluenceEng  *confluence.Engine
	healthChecker  *health.Checker
	momentumDet    *momentum.Detector
	earlyDet       *early.Detector
	positionMgr    *position.Manager
	brokerImpl     *broker.Broker
}

// New wires an Orchestrator from its feeds, storage and ambient services.
func New(cfg config.Config, repo storage.Repository, trending market.TrendingPoolFeed, newPools market.NewPoolFeed, pairs market.PairLookupFeed, holders market.HoldersFeed, sentiment market.SentimentFeed, clk clock.Clock, rng xrand.Source, log zerolog.Logger) *Orchestrator {
	quotes := quoteAdapter{feed: pairs}
	return &Orchestrator{
		cfg:       cfg,
		repo:      repo,
		trending:  trending,
		newPools:  newPools,
		pairs:     pairs,
		holders:   holders,
		sentiment: sentiment,
		clk:       clk,
		rng:       rng,
		log:       log,

		regimeDetector: regime.New(),
		riskGate:       risk.New(),
		confluenceEng:  confluence.New(walletConfluenceLookup{wallets: repo.Wallets, clk: clk}),
		healthChecker:  health.New(quotes, holders),
		momentumDet:    momentum.New(),
		earlyDet:       early.New(),
		positionMgr:    position.New(cfg.Position),
		brokerImpl:     broker.New(quotes, rng, clk),
	}
}

// RunSummary is the result of one Run() call across every user.
type RunSummary struct {
	Regime  regime.Result
	Cycles  []CycleResult
}

// Run detects the shared market regime once, then processes every user's
// cycle through a bounded worker pool, per §5 ("multiple users are processed
// in parallel; bounded worker pool").
func (o *Orchestrator) Run(ctx context.Context, userIDs []string, maxConcurrency int) RunSummary {
	now := o.clk.Now()

	sentimentScore, btcDominance := 50.0, 50.0
	if score, dom, err := o.sentiment.Sentiment(ctx); err == nil {
		sentimentScore, btcDominance = score, dom
	} else {
		o.log.Warn().Err(err).Msg("sentiment feed failed, using neutral fallback")
	}
	reg := o.regimeDetector.Detect(now, regime.Inputs{SentimentScore: sentimentScore, BTCDominance: btcDominance})

	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	sem := make(chan struct{}, maxConcurrency)
	results := make([]CycleResult, len(userIDs))

	done := make(chan int, len(userIDs))
	for i, userID := range userIDs {
		i, userID := i, userID
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- i }()
			results[i] = o.RunCycle(ctx, userID, reg, sentimentScore, btcDominance, now)
		}()
	}
	for range userIDs {
		<-done
	}

	return RunSummary{Regime: reg, Cycles: results}
}

// RunCycle executes the §4.14 sequence for one user, never aborting on a
// component failure unless it is an errkind.Logic error.
func (o *Orchestrator) RunCycle(ctx context.Context, userID string, reg regime.Result, sentimentScore, btcDominance float64, now time.Time) CycleResult {
	result := CycleResult{UserID: userID, Regime: reg.Regime, StartedAt: now}

	if err := ctx.Err(); err != nil {
		result.Partial = true
		result.recordErr("cancelled before start", err)
		result.FinishedAt = now
		return result
	}

	// step 0: rolling stats, risk gate inputs, calibration, forward prediction
	state := o.loadRiskState(ctx, userID, &result)
	calib := o.loadCalibrationState(ctx, userID, &result)

	trades30d, err := o.repo.Trades.ListClosed(ctx, userID, "", storage.TimeRange{From: now.Add(-rolling30dWindow), To: now}, 0)
	if err != nil {
		result.recordErr("load rolling trades", err)
	}
	metricsCore := performance.Compute(trades30d, types.LayerCore, rolling30dWindow, now)
	metricsSat := performance.Compute(trades30d, types.LayerSatellite, rolling30dWindow, now)
	metricsAll := performance.Compute(trades30d, "", rolling30dWindow, now)

	rollingCore := risk.RollingMetrics{TradeCount: metricsCore.TradeCount, ProfitFactor: metricsCore.ProfitFactor, DrawdownPct: metricsCore.MaxDrawdownPct, KellyFraction: metricsCore.KellyFraction}
	rollingSat := risk.RollingMetrics{TradeCount: metricsSat.TradeCount, ProfitFactor: metricsSat.ProfitFactor, DrawdownPct: metricsSat.MaxDrawdownPct, KellyFraction: metricsSat.KellyFraction}

	outcomesForCalib, err := o.repo.Outcomes.ListWithKnownWindow(ctx, userID, types.Window24h, calibrationLookback)
	if err != nil {
		result.recordErr("load calibration outcomes", err)
	}
	calib = calibration.Calibrate(calib, buildCalibrationInputs(outcomesForCalib), now)
	if err := o.repo.Calibration.Upsert(ctx, calib); err != nil {
		result.recordErr("persist calibration", err)
	}

	o.runForwardPrediction(state, metricsCore, metricsSat, metricsAll)

	// step 1: regime snapshot (regime itself is detected once per Run)
	snap := types.RegimeSnapshot{
		ID: uuid.NewString(), UserID: userID, Regime: reg.Regime,
		SentimentScore: sentimentScore, BTCDominance: btcDominance,
		Metadata:   votesToMetadata(reg.Votes),
		DetectedAt: now,
	}
	if err := o.repo.Regimes.Insert(ctx, snap); err != nil {
		result.recordErr("persist regime snapshot", err)
	}

	// step 2 already loaded state above (create-on-miss handled in loadRiskState)

	seenTokens := map[string]bool{}

	rolling := map[types.Layer]risk.RollingMetrics{types.LayerCore: rollingCore, types.LayerSatellite: rollingSat}

	// step 3: trending pipeline
	o.momentumDet.MinScore = calib.MomentumScoreThreshold
	if err := o.runMomentumPipeline(ctx, userID, &state, calib, reg, rolling, now, seenTokens, &result); err != nil && errkind.IsLogic(err) {
		result.recordErr("momentum pipeline aborted", err)
		result.Partial = true
		result.FinishedAt = now
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Partial = true
		result.recordErr("cancelled after momentum pipeline", err)
		result.FinishedAt = now
		o.persistRiskState(ctx, state, &result)
		return result
	}

	// step 4: early pipeline
	o.earlyDet.MinScore = calib.EarlyScoreThreshold
	if err := o.runEarlyPipeline(ctx, userID, &state, calib, reg, rolling, now, seenTokens, &result); err != nil && errkind.IsLogic(err) {
		result.recordErr("early pipeline aborted", err)
		result.Partial = true
		result.FinishedAt = now
		o.persistRiskState(ctx, state, &result)
		return result
	}

	// step 5: update pending outcomes (scoped to this user from the global queue)
	o.revisitPendingOutcomes(ctx, userID, now, &result)

	// step 6: position manager exits
	o.runExits(ctx, userID, &state, now, &result)

	o.persistRiskState(ctx, state, &result)

	result.FinishedAt = o.clk.Now()
	return result
}

func (o *Orchestrator) loadRiskState(ctx context.Context, userID string, result *CycleResult) types.RiskState {
	existing, err := o.repo.Risk.Get(ctx, userID)
	if err != nil {
		result.recordErr("load risk state", err)
	}
	if existing != nil {
		return *existing
	}
	state := types.RiskState{UserID: userID, Capital: 10_000}
	state.Clamp()
	return state
}

func (o *Orchestrator) loadCalibrationState(ctx context.Context, userID string, result *CycleResult) types.CalibrationState {
	existing, err := o.repo.Calibration.Get(ctx, userID)
	if err != nil {
		result.recordErr("load calibration state", err)
	}
	if existing != nil {
		return *existing
	}
	return types.DefaultCalibrationState(userID)
}

func (o *Orchestrator) persistRiskState(ctx context.Context, state types.RiskState, result *CycleResult) {
	if err := o.repo.Risk.Upsert(ctx, state); err != nil {
		result.recordErr("persist risk state", err)
	}
}

func votesToMetadata(votes map[string]types.Regime) map[string]interface{} {
	out := make(map[string]interface{}, len(votes))
	for k, v := range votes {
		out[k] = string(v)
	}
	return out
}

// runForwardPrediction runs the 7d and 30d Monte Carlo projections; its
// result is observability-only in this cycle (logged), not yet persisted,
// since no PredictionRepo exists in the storage interface.
func (o *Orchestrator) runForwardPrediction(state types.RiskState, core, sat, all performance.Metrics) {
	winsCount := all.WinRate / 100 * float64(all.TradeCount)
	lossCount := float64(all.TradeCount) - winsCount
	avgWin, avgLoss := 0.0, 0.0
	if winsCount > 0 {
		avgWin = all.GrossProfit / winsCount
	}
	if lossCount > 0 {
		avgLoss = all.GrossLoss / lossCount
	}

	dailyTarget := state.Capital * o.cfg.Risk.CoreMaxRiskPerTradePct * float64(o.cfg.MonteCarlo.TradesPerDay)

	for _, days := range []int{7, 30} {
		in := predictor.Inputs{
			WinRateCore: core.WinRate, WinRateSatellite: sat.WinRate,
			AvgWin: avgWin, AvgLoss: avgLoss,
			AvgSlippagePct: all.AvgSlippagePct, AvgGasUSD: all.AvgGasUSD,
			Capital: state.Capital, DailyTargetUSD: dailyTarget, Days: days,
		}
		res := predictor.Run(o.cfg.MonteCarlo, in, o.rng)
		o.log.Debug().Str("user_id", state.UserID).Int("days", days).
			Float64("p50", res.P50).Float64("prob_positive", res.ProbPositivePnL).
			Msg("forward prediction")
	}
}

func (o *Orchestrator) runMomentumPipeline(ctx context.Context, userID string, state *types.RiskState, calib types.CalibrationState, reg regime.Result, rolling map[types.Layer]risk.RollingMetrics, now time.Time, seenTokens map[string]bool, result *CycleResult) error {
	var signals []momentum.Signal
	for _, network := range o.cfg.Networks {
		pools, err := o.trending.TrendingPools(ctx, network)
		if err != nil {
			result.recordErr("trending pools fetch ("+network+")", err)
			continue
		}
		signals = append(signals, o.momentumDet.Detect(pools, now)...)
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].Score > signals[j].Score })

	for _, sig := range signals {
		if seenTokens[sig.TokenAddress] {
			continue
		}
		seenTokens[sig.TokenAddress] = true
		result.SignalsEvaluated++

		healthSnap, err := o.evaluateTokenHealth(ctx, sig.Network, sig.TokenAddress, now, result)
		if err != nil {
			continue
		}

		o.simulateSmartMoney(ctx, sig.TokenAddress, sig.Network, sig.Score, false, now, result)

		decision := o.confluenceEng.Evaluate(ctx, sig, healthSnap, reg, calib, now)
		o.processDecision(ctx, userID, decision, types.SourceMomentum, sig.PriceUSD, healthSnap, state, rolling, reg, now, result)
	}
	return nil
}

func (o *Orchestrator) runEarlyPipeline(ctx context.Context, userID string, state *types.RiskState, calib types.CalibrationState, reg regime.Result, rolling map[types.Layer]risk.RollingMetrics, now time.Time, seenTokens map[string]bool, result *CycleResult) error {
	var signals []early.Signal
	for _, network := range o.cfg.Networks {
		pools, err := o.newPools.NewPools(ctx, network)
		if err != nil {
			result.recordErr("new pools fetch ("+network+")", err)
			continue
		}
		signals = append(signals, o.earlyDet.Detect(pools, now)...)
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].Score > signals[j].Score })

	for _, sig := range signals {
		if seenTokens[sig.TokenAddress] {
			continue
		}
		seenTokens[sig.TokenAddress] = true
		result.SignalsEvaluated++

		healthSnap, err := o.evaluateTokenHealth(ctx, sig.Network, sig.TokenAddress, now, result)
		if err != nil {
			continue
		}

		o.simulateSmartMoney(ctx, sig.TokenAddress, sig.Network, sig.Score, true, now, result)

		decision := o.confluenceEng.EvaluateEarly(ctx, sig, healthSnap, reg, calib, now)
		o.processDecision(ctx, userID, decision, types.SourceEarly, sig.PriceUSD, healthSnap, state, rolling, reg, now, result)
	}
	return nil
}

func (o *Orchestrator) evaluateTokenHealth(ctx context.Context, network, tokenAddress string, now time.Time, result *CycleResult) (types.TokenHealthSnapshot, error) {
	snap, err := o.healthChecker.Check(ctx, network, tokenAddress, now)
	if err != nil {
		result.recordErr("health check ("+tokenAddress+")", err)
		return types.TokenHealthSnapshot{}, err
	}
	if err := o.repo.TokenHealth.Upsert(ctx, network, tokenAddress, snap); err != nil {
		result.recordErr("persist health snapshot", err)
	}
	return snap, nil
}

func (o *Orchestrator) simulateSmartMoney(ctx context.Context, tokenAddress, network string, score float64, isEarly bool, now time.Time, result *CycleResult) {
	movements := smartmoney.Simulate(smartmoney.Candidate{TokenAddress: tokenAddress, Network: network, Score: score, IsEarly: isEarly}, now)
	for _, m := range movements {
		ws := smartmoney.ScoreFor(m.WalletID)
		ws.UpdatedAt = now
		if err := o.repo.Wallets.UpsertScore(ctx, ws); err != nil {
			result.recordErr("persist wallet score", err)
		}
		rec := types.WalletMovement{
			ID: uuid.NewString(), WalletID: m.WalletID, TokenAddress: m.TokenAddress,
			Network: m.Network, Direction: m.Direction, AmountUSD: m.AmountUSD, OccurredAt: now,
		}
		if err := o.repo.Wallets.InsertMovement(ctx, rec); err != nil {
			result.recordErr("persist wallet movement", err)
		}
	}
}

// processDecision emits an outcome record for every evaluated signal
// (§4.12) and, when confluence approved it, runs the entry sub-routine.
func (o *Orchestrator) processDecision(ctx context.Context, userID string, decision *confluence.Decision, source types.SignalSource, priceUSD float64, healthSnap types.TokenHealthSnapshot, state *types.RiskState, rolling map[types.Layer]risk.RollingMetrics, reg regime.Result, now time.Time, result *CycleResult) {
	if decision == nil {
		return
	}

	entryPrice := decision.PriceUSD
	if entryPrice <= 0 {
		entryPrice = priceUSD
	}

	trade, rejectReason := o.runEntry(ctx, userID, decision, healthSnap, state, rolling[decision.Layer], now, result)

	out := outcome.Emit(outcome.EmitInput{
		UserID: userID, TokenAddress: decision.TokenAddress, Network: decision.Network,
		Layer: decision.Layer, Confidence: decision.Confidence, Regime: reg.Regime,
		EntryPrice: entryPrice, WasExecuted: trade != nil, RejectReason: rejectReason,
		Reasons: decision.Reasons, Source: source,
	}, uuid.NewString(), now)

	if err := o.repo.Outcomes.Insert(ctx, out); err != nil {
		result.recordErr("persist outcome", err)
	} else {
		result.OutcomesEmitted++
	}
}

// runEntry is the §4.14 entry sub-routine: risk gate, adaptive position
// sizing, minimum-ticket floor, then the paper broker fill.
func (o *Orchestrator) runEntry(ctx context.Context, userID string, decision *confluence.Decision, healthSnap types.TokenHealthSnapshot, state *types.RiskState, rollingMetrics risk.RollingMetrics, now time.Time, result *CycleResult) (*types.Trade, string) {
	gateDecision := o.riskGate.Check(*state, decision.Layer, o.cfg.Risk, rollingMetrics, now)
	if !gateDecision.Allow {
		return nil, gateDecision.DenyReason
	}

	confidenceFactor := 0.35 + 0.65*decision.Confidence/100
	liquidityFactor := clampFloat(healthSnap.LiquidityUSD/250_000, 0.4, 1)
	positionUSD := gateDecision.MaxPositionUSD * confidenceFactor * liquidityFactor

	capPct := liquidityCapSatellite
	minTicket := minTicketSatellite
	if decision.Layer == types.LayerCore {
		capPct = liquidityCapCore
		minTicket = minTicketCore
	}
	if cap := healthSnap.LiquidityUSD * capPct; positionUSD > cap {
		positionUSD = cap
	}
	if positionUSD < minTicket {
		return nil, "position size below minimum ticket"
	}

	order := broker.Order{
		UserID: userID, TokenAddress: decision.TokenAddress, Network: decision.Network,
		Symbol: decision.Symbol, Side: decision.Side, Layer: decision.Layer,
		PositionUSD: positionUSD, MaxPositionUSD: positionUSD,
		EntryReason: joinReasons(decision.Reasons),
	}

	fill := o.brokerImpl.Fill(ctx, order, true, positionUSD, "", healthSnap.PairAgeHours, healthSnap.SpreadPct)
	if !fill.Executed {
		return nil, fill.Reason
	}

	if err := o.repo.Trades.Insert(ctx, *fill.Trade); err != nil {
		result.recordErr("persist trade", err)
	} else {
		result.TradesOpened++
	}
	return fill.Trade, ""
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// revisitPendingOutcomes pulls the global pending-revisit queue, filters to
// this user and fills every elapsed-but-unrecorded window in one fetch per
// outcome, per §4.12.
func (o *Orchestrator) revisitPendingOutcomes(ctx context.Context, userID string, now time.Time, result *CycleResult) {
	pending, err := o.repo.Outcomes.ListPendingRevisit(ctx, now, pendingRevisitLimit)
	if err != nil {
		result.recordErr("list pending outcomes", err)
		return
	}

	fetcher := market.PriceFeedAdapter{Pairs: o.pairs}
	for _, o2 := range pending {
		if o2.UserID != userID {
			continue
		}
		rec := o2
		if err := outcome.Revisit(ctx, &rec, fetcher, now); err != nil {
			result.recordErr("revisit outcome "+rec.ID, err)
			continue
		}
		if err := o.repo.Outcomes.Update(ctx, rec); err != nil {
			result.recordErr("persist revisited outcome", err)
			continue
		}
		result.OutcomesRevisited++
	}
}

// runExits evaluates every open trade against the position manager's five
// exit rules and applies the trade result to the risk ledger on a close.
func (o *Orchestrator) runExits(ctx context.Context, userID string, state *types.RiskState, now time.Time, result *CycleResult) {
	open, err := o.repo.Trades.ListOpen(ctx, userID, "")
	if err != nil {
		result.recordErr("list open trades", err)
		return
	}

	for _, trade := range open {
		quote, err := o.pairs.BestPair(ctx, trade.Network, trade.TokenAddress)
		if err != nil {
			result.recordErr("quote for exit check ("+trade.TokenAddress+")", err)
			continue
		}

		snap := position.Snapshot{CurrentPrice: quote.PriceUSD, CurrentVolume: quote.Volume24h, LiquidityUSD: quote.LiquidityUSD, Now: now}
		eval := o.positionMgr.Evaluate(trade, snap)
		if !eval.ShouldExit {
			continue
		}

		t := trade
		position.Close(&t, snap, eval)
		if err := o.repo.Trades.Update(ctx, t); err != nil {
			result.recordErr("persist closed trade", err)
			continue
		}
		result.TradesClosed++

		risk.ApplyTradeResult(state, t.Layer, t.PnLAbs, o.cfg.Risk, now)
	}
}
