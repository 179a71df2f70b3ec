package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/paperdex/internal/types"
)

func runCycleRun(cmd *cobra.Command, args []string) error {
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	d, err := buildDeps(cmd, log.Logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	userIDs := configuredUserIDs(d.cfg)
	summary := d.orch.Run(ctx, userIDs, concurrency)

	opened, closed, errs := 0, 0, 0
	for _, c := range summary.Cycles {
		opened += c.TradesOpened
		closed += c.TradesClosed
		errs += len(c.Errors)
		for _, e := range c.Errors {
			log.Warn().Str("user_id", c.UserID).Str("err", e).Msg("cycle phase error")
		}
	}

	fmt.Printf("regime=%s users=%d opened=%d closed=%d errors=%d\n",
		summary.Regime.Regime, len(summary.Cycles), opened, closed, errs)

	return nil
}

func runCycleStatus(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd, log.Logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, userID := range configuredUserIDs(d.cfg) {
		state, err := d.repo.Risk.Get(ctx, userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("load risk state failed")
			continue
		}
		if state == nil {
			fmt.Printf("%s: no risk state yet (will bootstrap on first cycle)\n", userID)
			continue
		}

		openCore, _ := d.repo.Trades.ListOpen(ctx, userID, types.LayerCore)
		openSat, _ := d.repo.Trades.ListOpen(ctx, userID, types.LayerSatellite)

		fmt.Printf("%s: capital=$%.2f pnl_today=$%.2f pnl_week=$%.2f paused=%v open_core=%d open_satellite=%d\n",
			userID, state.Capital, state.PnLToday, state.PnLThisWeek, state.IsPaused, len(openCore), len(openSat))
	}

	return nil
}
