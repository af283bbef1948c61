package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiSample struct {
	endpoint string
	status   int
}

type fakeAPIRecorder struct {
	mu      sync.Mutex
	samples []apiSample
}

func (f *fakeAPIRecorder) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, apiSample{endpoint: endpoint, status: statusCode})
}

func newTestRouter(recorder APIRecorder, origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoverWithSentry())
	router.Use(RequestTracking(recorder))
	router.Use(CORS(origins))

	router.GET("/items/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})
	return router
}

func TestRequestTracking(t *testing.T) {
	recorder := &fakeAPIRecorder{}
	router := newTestRouter(recorder, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	require.Equal(t, http.StatusOK, w.Code)
	requestID := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(requestID)
	assert.NoError(t, err)
	assert.Contains(t, w.Body.String(), requestID)

	require.Len(t, recorder.samples, 1)
	assert.Equal(t, "/items/:id", recorder.samples[0].endpoint)
	assert.Equal(t, http.StatusOK, recorder.samples[0].status)
}

func TestRequestTracking_ReusesUpstreamID(t *testing.T) {
	router := newTestRouter(&fakeAPIRecorder{}, nil)
	upstream := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("X-Request-ID", upstream)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, upstream, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEqual(t, "not-a-uuid", w.Header().Get("X-Request-ID"))
}

func TestRecoverWithSentry(t *testing.T) {
	recorder := &fakeAPIRecorder{}
	router := newTestRouter(recorder, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllowed bool
	}{
		{"allowed origin", []string{"http://localhost:3000"}, "http://localhost:3000", true},
		{"configured with trailing slash", []string{"https://app.example/"}, "https://app.example", true},
		{"unknown origin", []string{"http://localhost:3000"}, "https://evil.example", false},
		{"wildcard", []string{"*"}, "https://any.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(nil, tt.origins)

			req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Tempo")
				assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Scale")
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := newTestRouter(nil, []string{"http://localhost:5173"})
	router.POST("/api/generate", func(c *gin.Context) {
		t.Fatal("preflight must not reach the handler")
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
