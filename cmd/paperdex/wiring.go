package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sawpanic/paperdex/internal/clock"
	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/httpapi"
	"github.com/sawpanic/paperdex/internal/market"
	"github.com/sawpanic/paperdex/internal/net/budget"
	"github.com/sawpanic/paperdex/internal/net/circuit"
	"github.com/sawpanic/paperdex/internal/net/ratelimit"
	"github.com/sawpanic/paperdex/internal/orchestrator"
	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/storage/postgres"
	"github.com/sawpanic/paperdex/internal/xrand"
)

// deps bundles the wiring every non-selftest command shares: loaded config,
// a Postgres-backed repository, a rate-limited/circuit-broken market feed
// and the orchestrator built on top of both.
type deps struct {
	cfg  config.Config
	repo storage.Repository
	orch *orchestrator.Orchestrator
	db   *sqlx.DB
}

func buildDeps(cmd *cobra.Command, log zerolog.Logger) (*deps, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	repo := postgres.NewRepository(db, 10*time.Second)

	feed := buildFeed(log)
	pairs := market.NewCachedPairLookup(feed, buildRedis(), 20*time.Second)

	orch := orchestrator.New(cfg, repo, feed, feed, pairs, feed, feed, clock.Real{}, xrand.New(time.Now().UnixNano()), log)

	return &deps{cfg: cfg, repo: repo, orch: orch, db: db}, nil
}

// buildFeed wires one HTTPFeed (it implements every market.*Feed interface)
// against a GeckoTerminal-shaped base URL, behind the same rate-limit /
// circuit-breaker / daily-budget pairing used elsewhere for free-tier
// providers.
func buildFeed(log zerolog.Logger) *market.HTTPFeed {
	baseURL := os.Getenv("GECKOTERMINAL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.geckoterminal.com/api/v2"
	}

	limiter := ratelimit.NewLimiter(0.5, 2)
	breaker := circuit.NewBreaker(circuit.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		RequestTimeout:   10 * time.Second,
	})
	budgetTracker := budget.NewTracker(10_000, 0, 0.8)

	return market.NewHTTPFeed(baseURL, &http.Client{Timeout: 10 * time.Second}, limiter, breaker, budgetTracker, log)
}

// buildRedis returns a client for REDIS_ADDR, or nil if unset — the quote
// cache degrades to pass-through when no cache is configured.
func buildRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

func configuredUserIDs(cfg config.Config) []string {
	if len(cfg.Users) == 0 {
		return []string{"default"}
	}
	return cfg.Users
}

var _ httpapi.CycleRunner = (*orchestrator.Orchestrator)(nil)
