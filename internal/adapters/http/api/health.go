package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/pkg/metrics"
)

const healthCheckTimeout = 2 * time.Second

// StatsProvider reports runtime counters for /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// OpsHandler serves the operational endpoints: liveness, Prometheus metrics
// and runtime stats.
type OpsHandler struct {
	checks  []repository.Pinger
	stats   StatsProvider
	metrics http.Handler
	started time.Time
}

// NewOpsHandler creates the handler. A nil stats provider yields an empty
// stats body.
func NewOpsHandler(stats StatsProvider, checks ...repository.Pinger) *OpsHandler {
	return &OpsHandler{
		checks:  checks,
		stats:   stats,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		started: time.Now(),
	}
}

// HandleHealth handles GET /healthz. Any failing check degrades the status
// to 503.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]string{"status": "ok", "store": "ok"}
	code := http.StatusOK
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["store"] = "unreachable"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, status)
}

// HandleMetrics serves the custom registry.
func (h *OpsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleStats handles GET /stats. The provider's counters are returned with
// the server uptime added.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]interface{}{}
	if h.stats != nil {
		for k, v := range h.stats.GetStats() {
			out[k] = v
		}
	}
	out["uptimeSeconds"] = int(time.Since(h.started) / time.Second)
	writeJSON(w, http.StatusOK, out)
}
