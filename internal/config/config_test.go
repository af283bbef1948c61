package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "LLM_PROVIDER", "LLM_MODEL", "LLM_TEMPERATURE",
		"LLM_MAX_OUTPUT_TOKENS", "GENERATION_MAX_ATTEMPTS", "GENERATION_TIMEOUT_SECONDS",
		"TEMP_DIR", "MP3_BITRATE", "CORS_ALLOWED_ORIGINS", "LANGFUSE_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.LLMModel)
	assert.Equal(t, 0.8, cfg.Temperature)
	assert.Equal(t, int64(16384), cfg.MaxOutputTokens)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, "./temp", cfg.TempDir)
	assert.Equal(t, "192k", cfg.MP3Bitrate)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.LangfuseEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "5")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "30")
	t.Setenv("AUDIO_SAMPLE_RATE", "44100")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LANGFUSE_ENABLED", "true")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLMModel)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 44100, cfg.AudioSampleRate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.LangfuseEnabled)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("GENERATION_MAX_ATTEMPTS", "many")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("LANGFUSE_ENABLED", "yes please")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 0.8, cfg.Temperature)
	assert.False(t, cfg.LangfuseEnabled)
}
