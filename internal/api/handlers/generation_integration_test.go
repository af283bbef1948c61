package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/agents/composer"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/config"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/llm"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/prompt"
)

// TestGenerate_Integration runs the real provider end to end with format=json,
// so it needs an API key but no synthesizer.
func TestGenerate_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.OpenAIAPIKey == "" && cfg.GeminiAPIKey == "" {
		t.Skip("No LLM API key configured")
	}

	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	provider, err := factory.GetProvider(t.Context(), cfg.LLMModel, cfg.LLMProvider)
	if err != nil {
		t.Skipf("Provider unavailable: %v", err)
	}

	agent := composer.NewComposerAgent(provider, prompt.NewPromptBuilder(), composer.Options{
		Model:       cfg.LLMModel,
		MaxAttempts: cfg.MaxAttempts,
		Temperature: cfg.Temperature,
	}, nil)
	router := setupGenerationRouter(agent, &fakeRenderer{base: t.TempDir()}, 2*time.Minute)

	w := postGenerate(router, "?format=json", map[string]any{"genre": "jazz", "mood": "happy", "bars": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CompositionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Composition)
	assert.NotEmpty(t, resp.Composition.Tracks)
	assert.Equal(t, 4, resp.LengthReport.Bars)
	assert.GreaterOrEqual(t, resp.Attempts, 1)
	assert.NotEmpty(t, w.Header().Get("X-Tempo"))
}
