package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sawpanic/paperdex/internal/orchestrator"
)

// CycleRunner is the one orchestrator method the HTTP surface needs; kept as
// a narrow interface so httpapi never has to know about storage or feeds.
type CycleRunner interface {
	Run(ctx context.Context, userIDs []string, maxConcurrency int) orchestrator.RunSummary
}

// UserLister resolves which users a cron-triggered cycle should cover.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// ServerConfig mirrors the teacher's local-only-by-default HTTP server
// config, plus the cron secret gating /cycle/run.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CronSecret   string
	MaxConcurrency int
}

func DefaultServerConfig(cronSecret string) ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		CronSecret:     cronSecret,
		MaxConcurrency: 4,
	}
}

// Server exposes /healthz, /metrics and the secret-gated POST /cycle/run.
type Server struct {
	router  *mux.Router
	server  *http.Server
	cfg     ServerConfig
	runner  CycleRunner
	users   UserLister
	metrics *MetricsRegistry
	health  *HealthHandler
	log     zerolog.Logger

	lastCycle LastCycleInfo
}

func NewServer(cfg ServerConfig, runner CycleRunner, users UserLister, metrics *MetricsRegistry, version string, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, runner: runner, users: users, metrics: metrics, log: log}
	s.health = NewHealthHandler(version, func() *LastCycleInfo {
		if s.lastCycle.FinishedAt.IsZero() {
			return nil
		}
		info := s.lastCycle
		return &info
	})

	router := mux.NewRouter()
	s.router = router
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.health.ServeHTTP).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/cycle/run", s.handleCycleRun).Methods(http.MethodPost)
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("request_id", fmt.Sprint(r.Context().Value(requestIDKey{}))).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// handleCycleRun requires the X-Cron-Secret header to match cfg.CronSecret
// before running a cycle for every user the configured UserLister returns.
func (s *Server) handleCycleRun(w http.ResponseWriter, r *http.Request) {
	// an empty CronSecret means the gate was never configured: refuse rather
	// than silently run unauthenticated trading cycles.
	if s.cfg.CronSecret == "" {
		http.Error(w, `{"error":"cron secret not configured"}`, http.StatusServiceUnavailable)
		return
	}
	if !subtleCompare(r.Header.Get("X-Cron-Secret"), s.cfg.CronSecret) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	userIDs, err := s.users.ListUserIDs(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
		return
	}

	timer := s.metrics.StartPhaseTimer("cycle")
	s.metrics.ActiveCycles.Inc()
	summary := s.runner.Run(r.Context(), userIDs, s.cfg.MaxConcurrency)
	s.metrics.ActiveCycles.Dec()
	timer.Stop()

	s.recordSummary(summary)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"regime":      string(summary.Regime.Regime),
		"users_run":   len(summary.Cycles),
		"last_cycle":  s.lastCycle,
	})
}

func (s *Server) recordSummary(summary orchestrator.RunSummary) {
	info := LastCycleInfo{FinishedAt: time.Now().UTC(), Regime: string(summary.Regime.Regime), UsersRun: len(summary.Cycles)}

	s.metrics.ActiveRegime.Reset()
	s.metrics.ActiveRegime.WithLabelValues(string(summary.Regime.Regime)).Set(1)
	for _, c := range summary.Cycles {
		info.TradesOpened += c.TradesOpened
		info.TradesClosed += c.TradesClosed
		info.Errors += len(c.Errors)
		result := "ok"
		if c.Partial {
			result = "partial"
		}
		s.metrics.CyclesTotal.WithLabelValues(result).Inc()
		s.metrics.TradesOpened.Add(float64(c.TradesOpened))
		s.metrics.TradesClosed.Add(float64(c.TradesClosed))
		s.metrics.SignalsSeen.Add(float64(c.SignalsEvaluated))
		s.metrics.CycleErrors.Add(float64(len(c.Errors)))
	}
	s.lastCycle = info
}

// subtleCompare is a constant-time string comparison so the secret check
// doesn't leak timing information about where the mismatch occurred.
func subtleCompare(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting http server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) Address() string { return strings.TrimPrefix(s.server.Addr, "0.0.0.0") }
