package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/paperdex/internal/httpapi"
)

func runMonitorServe(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	d, err := buildDeps(cmd, log.Logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	cfg := httpapi.DefaultServerConfig(os.Getenv("CRON_SECRET"))
	cfg.Host = host
	cfg.Port = port
	cfg.MaxConcurrency = concurrency

	metrics := httpapi.NewMetricsRegistry()
	users := httpapi.StaticUserLister(configuredUserIDs(d.cfg))

	srv := httpapi.NewServer(cfg, d.orch, users, metrics, version, log.Logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Info().Str("addr", srv.Address()).Msg("monitor endpoints available: /healthz /metrics /cycle/run")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
