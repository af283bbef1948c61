package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/metrics"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/render"
)

type stubChecker struct {
	err error
}

func (s stubChecker) Check() error { return s.err }

func getJSON(t *testing.T, handler gin.HandlerFunc, path string, out any) int {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET(path, handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	return w.Code
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name         string
		checkErr     error
		wantRenderer string
	}{
		{"renderer ready", nil, "ready"},
		{"renderer missing soundfont", fmt.Errorf("soundfont not found: %w", render.ErrConfiguration), "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("1.2.3", "openai", "gpt-4o", stubChecker{err: tt.checkErr})

			var resp HealthResponse
			code := getJSON(t, h.HealthCheck, "/api/health", &resp)

			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "healthy", resp.Status)
			assert.Equal(t, "BeatCanvas API", resp.Service)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Equal(t, "gpt-4o", resp.Model)
			assert.Equal(t, tt.wantRenderer, resp.Renderer.Status)
			if tt.checkErr != nil {
				assert.Contains(t, resp.Renderer.Error, "soundfont not found")
			} else {
				assert.Empty(t, resp.Renderer.Error)
			}
		})
	}
}

func TestRoot(t *testing.T) {
	h := NewHealthHandler("1.2.3", "gemini", "gemini-2.5-flash", nil)

	var resp map[string]any
	code := getJSON(t, h.Root, "/", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "BeatCanvas API", resp["message"])
	assert.Equal(t, "/api/health", resp["health"])
	assert.Contains(t, resp["endpoints"], "generate")
}

type stubStats struct {
	stats metrics.Stats
}

func (s stubStats) Snapshot() metrics.Stats { return s.stats }

func TestGetMetrics(t *testing.T) {
	h := NewMetricsHandler("1.2.3", stubStats{stats: metrics.Stats{
		AttemptsByOutcome: map[string]int64{
			metrics.OutcomeSuccess:     3,
			metrics.OutcomeDecodeError: 1,
		},
		GenerationsSucceeded: 3,
		CompositionsExtended: 1,
		TracksExtended:       2,
		RenderStages: map[string]metrics.RenderStats{
			"wav": {Succeeded: 2, Failed: 1},
		},
	}})

	var resp MetricsResponse
	code := getJSON(t, h.GetMetrics, "/api/metrics", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Contains(t, resp.Endpoints, "generate")
	assert.Equal(t, int64(1), resp.Pipeline.AttemptsByOutcome[metrics.OutcomeDecodeError])
	assert.Equal(t, int64(2), resp.Pipeline.TracksExtended)
	assert.Equal(t, int64(1), resp.Pipeline.RenderStages["wav"].Failed)
	assert.InDelta(t, 0.25, resp.Pipeline.RetryRate, 1e-9)
	assert.InDelta(t, 1.0/3, resp.Pipeline.ExtensionRate, 1e-9)
}

func TestGetMetrics_NoTraffic(t *testing.T) {
	h := NewMetricsHandler("dev", nil)

	var resp MetricsResponse
	code := getJSON(t, h.GetMetrics, "/api/metrics", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.Zero(t, resp.Pipeline.RetryRate)
	assert.Zero(t, resp.Pipeline.ExtensionRate)
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{5.5, "5.50s"},
		{65, "1m5.00s"},
		{3725, "1h2m5.00s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			d := time.Duration(tt.seconds * float64(time.Second))
			assert.Equal(t, tt.want, formatUptime(d))
		})
	}
}
