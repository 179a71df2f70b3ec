package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthHandler reports process liveness and the most recent cycle outcome.
// It never touches the database itself; LastCycle is pushed in by whatever
// code drives the cron/monitor loop.
type HealthHandler struct {
	startTime time.Time
	version   string
	lastCycle func() *LastCycleInfo
}

// LastCycleInfo is the most recent Run() summary, reported for operator
// visibility without re-querying storage.
type LastCycleInfo struct {
	FinishedAt time.Time `json:"finished_at"`
	Regime     string    `json:"regime"`
	UsersRun   int       `json:"users_run"`
	TradesOpened int     `json:"trades_opened"`
	TradesClosed int     `json:"trades_closed"`
	Errors       int     `json:"errors"`
}

func NewHealthHandler(version string, lastCycle func() *LastCycleInfo) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), version: version, lastCycle: lastCycle}
}

// HealthResponse is the /healthz JSON body.
type HealthResponse struct {
	Status     string          `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	Uptime     string          `json:"uptime"`
	Version    string          `json:"version"`
	System     SystemInfo      `json:"system"`
	LastCycle  *LastCycleInfo  `json:"last_cycle,omitempty"`
}

// SystemInfo reports coarse Go runtime stats, the teacher's go_version /
// goroutine-count / heap-alloc health fields.
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAllocBytes uint64 `json:"mem_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	status := "healthy"
	var last *LastCycleInfo
	if h.lastCycle != nil {
		last = h.lastCycle()
		if last != nil && last.Errors > 0 {
			status = "degraded"
		}
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAllocBytes: ms.Alloc,
			NumGC:         ms.NumGC,
		},
		LastCycle: last,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusOK) // degraded is still a 200: the process is alive
	}
	_ = json.NewEncoder(w).Encode(resp)
}
