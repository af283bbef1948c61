package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/agents/composer"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/api"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/config"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/llm"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/metrics"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/observability"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/prompt"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/render"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	ctx := context.Background()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "beatcanvas-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	observability.InitializeLangfuse(ctx, cfg)

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
	}
	recorder := metrics.NewRecorder(cloudwatch)

	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	provider, err := factory.GetProvider(ctx, cfg.LLMModel, cfg.LLMProvider)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to initialize LLM provider:", err)
	}

	agent := composer.NewComposerAgent(provider, prompt.NewPromptBuilder(), composer.Options{
		Model:           cfg.LLMModel,
		MaxAttempts:     cfg.MaxAttempts,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, recorder)

	renderer := render.NewRenderer(render.Options{
		SoundFontPath:  cfg.SoundFontPath,
		TempDir:        cfg.TempDir,
		FluidSynthPath: cfg.FluidSynthPath,
		FFmpegPath:     cfg.FFmpegPath,
		SampleRate:     cfg.AudioSampleRate,
		MP3Bitrate:     cfg.MP3Bitrate,
	}, recorder)
	if err := renderer.Check(); err != nil {
		// Audio output is unavailable but JSON and MIDI responses still work
		log.Printf("⚠️  Renderer not ready: %v", err)
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(cfg, agent, renderer, recorder, GetVersion())

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
