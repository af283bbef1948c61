package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/metrics"
)

// StatsSource exposes the pipeline counters
type StatsSource interface {
	Snapshot() metrics.Stats
}

type MetricsHandler struct {
	startTime time.Time
	version   string
	stats     StatsSource
}

func NewMetricsHandler(version string, stats StatsSource) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		stats:     stats,
	}
}

// formatUptime formats d as 1h2m5.00s, dropping leading zero units
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := d.Seconds() - float64(hours*3600) - float64(minutes*60)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%.2fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%.2fs", minutes, seconds)
	default:
		return fmt.Sprintf("%.2fs", seconds)
	}
}

// PipelineMetrics summarises generation quality since startup
type PipelineMetrics struct {
	metrics.Stats
	// RetryRate is the share of attempts that were undecodable
	RetryRate float64 `json:"retry_rate"`
	// ExtensionRate is the share of successful generations that needed looping
	ExtensionRate float64 `json:"extension_rate"`
}

type MetricsResponse struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	StartTime  string            `json:"start_time"`
	Pipeline   PipelineMetrics   `json:"pipeline"`
	Goroutines int               `json:"goroutines"`
	HeapMB     uint64            `json:"heap_mb"`
	Endpoints  map[string]string `json:"endpoints"`
}

func newPipelineMetrics(stats metrics.Stats) PipelineMetrics {
	out := PipelineMetrics{Stats: stats}

	var attempts int64
	for _, n := range stats.AttemptsByOutcome {
		attempts += n
	}
	if attempts > 0 {
		out.RetryRate = float64(stats.AttemptsByOutcome[metrics.OutcomeDecodeError]) / float64(attempts)
	}
	if stats.GenerationsSucceeded > 0 {
		out.ExtensionRate = float64(stats.CompositionsExtended) / float64(stats.GenerationsSucceeded)
	}
	return out
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var stats metrics.Stats
	if h.stats != nil {
		stats = h.stats.Snapshot()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, MetricsResponse{
		Status:     "healthy",
		Uptime:     formatUptime(time.Since(h.startTime)),
		Version:    h.version,
		StartTime:  h.startTime.UTC().Format(time.RFC3339),
		Pipeline:   newPipelineMetrics(stats),
		Goroutines: runtime.NumGoroutine(),
		HeapMB:     mem.HeapAlloc / (1024 * 1024),
		Endpoints:  apiEndpoints,
	})
}
