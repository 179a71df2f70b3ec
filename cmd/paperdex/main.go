package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "paperdex"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "PaperDex — an autonomous paper-trading engine for on-chain DeFi tokens",
		Version: version,
		Long: `PaperDex discovers candidate tokens from public DEX market feeds, scores
them for momentum and early traction, cross-references smart-money buying
behaviour, checks token health, classifies market regime, and routes the
resulting signals through a risk gate and a simulated execution layer.

All trades are simulated against real-market quotes; no funds move.`,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (optional, defaults are used otherwise)")

	cycleCmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run or inspect the per-user trading cycle",
	}
	cycleRunCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one cycle for every configured user",
		Long:  "Detects the market regime once, then runs the full signal-discovery/risk/execution sequence for each configured user, in parallel up to --concurrency.",
		RunE:  runCycleRun,
	}
	cycleRunCmd.Flags().Int("concurrency", 4, "maximum number of users processed concurrently")
	cycleStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show each configured user's current risk state and open positions",
		RunE:  runCycleStatus,
	}
	cycleCmd.AddCommand(cycleRunCmd, cycleStatusCmd)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitoring and cron-trigger HTTP server",
	}
	monitorServeCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (/healthz, /metrics, POST /cycle/run)",
		RunE:  runMonitorServe,
	}
	monitorServeCmd.Flags().String("host", "0.0.0.0", "listen host")
	monitorServeCmd.Flags().Int("port", 8080, "listen port")
	monitorServeCmd.Flags().Int("concurrency", 4, "maximum number of users processed concurrently per cron trigger")
	monitorCmd.AddCommand(monitorServeCmd)

	selftestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run one cycle offline against fake feeds and an in-memory store",
		Long:  "Validates the full discovery/risk-gate/execution sequence wires together correctly with no network access and no database, for CI and local sanity checks.",
		RunE:  runSelfTest,
	}

	rootCmd.AddCommand(cycleCmd, monitorCmd, selftestCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
