package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
)

// HandleStats handles GET /api/v1/stats.
// @Summary Service statistics
// @Description Runtime, reconciliation, event, realtime and cache statistics
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Security ApiKeyAuth
// @Router /api/v1/stats [get].
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	totals := h.recorder.Totals()
	failures := make(map[string]uint64, len(totals.Failures))
	for _, f := range totals.Failures {
		failures[f.Code] = f.Count
	}
	published, dropped := h.broker.Stats()

	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      memStats.Alloc / 1024 / 1024,
			"memory_sys_mb":  memStats.Sys / 1024 / 1024,
		},
		"reconcile": map[string]any{
			"batches_total":    totals.Batches,
			"queries_total":    totals.Queries,
			"failed_total":     totals.Failed,
			"candidates_total": totals.Candidates,
			"extends_total":    totals.Extends,
			"chunks_total":     totals.Chunks,
			"failures_by_code": failures,
		},
		"events": map[string]any{
			"published_total": published,
			"dropped_total":   dropped,
			"subscribers":     h.broker.SubscriberCount(),
		},
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
		},
		"cache": h.cache.GetStats(),
	})
}

// HandleMetrics handles GET /metrics in the Prometheus text format.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	totals := h.recorder.Totals()
	published, dropped := h.broker.Stats()
	cacheStats := h.cache.GetStats()

	var b strings.Builder
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, help, name, name, v)
	}

	fmt.Fprintf(&b, "# HELP reconciler_info Build information.\n# TYPE reconciler_info gauge\n")
	fmt.Fprintf(&b, "reconciler_info{version=%q,commit=%q} 1\n", h.build.Version, h.build.Commit)
	counter("reconciler_batches_total", "Reconciliation batches completed.", totals.Batches)
	counter("reconciler_queries_total", "Queries settled.", totals.Queries)
	counter("reconciler_candidates_total", "Candidates returned.", totals.Candidates)
	counter("reconciler_extends_total", "Data-extension requests completed.", totals.Extends)
	counter("reconciler_chunks_total", "Stream chunks matched.", totals.Chunks)

	fmt.Fprintf(&b, "# HELP reconciler_query_failures_total Failed queries by error code.\n# TYPE reconciler_query_failures_total counter\n")
	for _, f := range totals.Failures {
		fmt.Fprintf(&b, "reconciler_query_failures_total{code=%q} %d\n", f.Code, f.Count)
	}

	counter("reconciler_events_published_total", "Realtime events queued.", published)
	counter("reconciler_events_dropped_total", "Realtime events dropped on a full queue.", dropped)
	counter("reconciler_cache_hits_total", "Cache hits.", cacheStats.Hits)
	counter("reconciler_cache_misses_total", "Cache misses.", cacheStats.Misses)
	gauge("reconciler_cache_items", "Items currently cached.", cacheStats.ItemCount)
	gauge("reconciler_websocket_clients", "Connected WebSocket clients.", h.wsHub.ClientCount())
	gauge("reconciler_sse_clients", "Connected SSE clients.", h.sseBroadcaster.ClientCount())

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(b.String()))
}
