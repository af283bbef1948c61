package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	providerGemini     = "gemini"
	defaultOpenAIModel = "gpt-4o"
	defaultGeminiModel = "gemini-2.5-flash"
)

// Config holds the application configuration
// Note: This is a stateless configuration - compositions are never persisted
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM
	LLMProvider     string  // "openai" or "gemini"
	LLMModel        string  // Model name passed to the provider
	OpenAIAPIKey    string  // OpenAI API key for GPT models
	GeminiAPIKey    string  // Google Gemini API key
	Temperature     float64 // Sampling temperature for composition
	MaxOutputTokens int64   // Ceiling for the per-request output budget

	// Generation
	MaxAttempts       int
	GenerationTimeout time.Duration

	// Rendering
	SoundFontPath   string
	TempDir         string
	FluidSynthPath  string
	FFmpegPath      string
	AudioSampleRate int
	MP3Bitrate      string

	// HTTP
	CORSAllowedOrigins []string

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", "openai"))
	defaultModel := defaultOpenAIModel
	if provider == providerGemini {
		defaultModel = defaultGeminiModel
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Port:               getEnv("PORT", "8080"),
		LLMProvider:        provider,
		LLMModel:           getEnv("LLM_MODEL", defaultModel),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		Temperature:        getEnvFloat("LLM_TEMPERATURE", 0.8),
		MaxOutputTokens:    int64(getEnvInt("LLM_MAX_OUTPUT_TOKENS", 16384)),
		MaxAttempts:        getEnvInt("GENERATION_MAX_ATTEMPTS", 3),
		GenerationTimeout:  time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 120)) * time.Second,
		SoundFontPath:      getEnv("SOUNDFONT_PATH", "../soundfonts/GeneralUserGS.sf2"),
		TempDir:            getEnv("TEMP_DIR", "./temp"),
		FluidSynthPath:     getEnv("FLUIDSYNTH_PATH", "fluidsynth"),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		AudioSampleRate:    getEnvInt("AUDIO_SAMPLE_RATE", 22050),
		MP3Bitrate:         getEnv("MP3_BITRATE", "192k"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:  getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:  getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:       getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:    getEnvBool("LANGFUSE_ENABLED", false),
	}
}

// IsProduction reports whether production-only integrations should run.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
