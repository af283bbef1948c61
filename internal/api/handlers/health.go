package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "BeatCanvas API"

// RendererChecker reports whether the audio toolchain can run
type RendererChecker interface {
	Check() error
}

type HealthHandler struct {
	version  string
	provider string
	model    string
	renderer RendererChecker
}

func NewHealthHandler(version, provider, model string, renderer RendererChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		provider: provider,
		model:    model,
		renderer: renderer,
	}
}

type RendererStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status   string         `json:"status"`
	Service  string         `json:"service"`
	Version  string         `json:"version"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Renderer RendererStatus `json:"renderer"`
}

// HealthCheck returns the health status of the API. A missing synthesizer
// degrades the renderer status but the service itself stays healthy, since
// format=json and format=midi still work.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	renderer := RendererStatus{Status: "ready"}
	if h.renderer != nil {
		if err := h.renderer.Check(); err != nil {
			renderer = RendererStatus{Status: "unavailable", Error: err.Error()}
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Service:  serviceName,
		Version:  h.version,
		Provider: h.provider,
		Model:    h.model,
		Renderer: renderer,
	})
}

// Root returns a banner describing the service
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   serviceName,
		"version":   h.version,
		"health":    "/api/health",
		"endpoints": apiEndpoints,
	})
}
