package composer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/llm"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/logger"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/metrics"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/observability"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/prompt"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/services"
)

const (
	// DefaultMaxAttempts bounds the retry loop when Options leaves it unset
	DefaultMaxAttempts = 3

	maxPreviewLength = 200
)

// MetricsRecorder interface for recording metrics
type MetricsRecorder interface {
	RecordTokenUsage(ctx context.Context, model string, usage llm.Usage)
	RecordGenerationAttempt(ctx context.Context, attempt int, outcome string, duration time.Duration)
	RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool)
	RecordLengthRepair(ctx context.Context, extendedTracks, totalTracks int)
}

// Options configures a ComposerAgent
type Options struct {
	Model         string
	ReasoningMode string
	MaxAttempts   int
	Temperature   float64
	// MaxOutputTokens is the ceiling for the per-request output budget
	MaxOutputTokens int64
}

// ComposerAgent turns composition parameters into a validated, length-repaired
// composition. It holds no per-request state and is safe for concurrent use.
type ComposerAgent struct {
	provider      llm.Provider
	promptBuilder *prompt.Builder
	opts          Options
	metrics       MetricsRecorder
}

// Result is a successful composition run
type Result struct {
	Composition *models.Composition
	Report      services.LengthReport
	Attempts    int
	Usage       llm.Usage
	Prompt      string
	Duration    time.Duration
}

// NewComposerAgent creates an agent. A nil recorder defaults to Sentry-only metrics.
func NewComposerAgent(provider llm.Provider, promptBuilder *prompt.Builder, opts Options, recorder MetricsRecorder) *ComposerAgent {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = services.DefaultMaxOutputTokens
	}
	if promptBuilder == nil {
		promptBuilder = prompt.NewPromptBuilder()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder(nil)
	}

	log.Printf("🎵 COMPOSER AGENT INITIALIZED:")
	log.Printf("   Provider: %s", provider.Name())
	log.Printf("   Model: %s", opts.Model)
	log.Printf("   Max attempts: %d", opts.MaxAttempts)

	return &ComposerAgent{
		provider:      provider,
		promptBuilder: promptBuilder,
		opts:          opts,
		metrics:       recorder,
	}
}

// Provider returns the name of the underlying provider
func (a *ComposerAgent) Provider() string {
	return a.provider.Name()
}

// Model returns the configured model name
func (a *ComposerAgent) Model() string {
	return a.opts.Model
}

// Compose builds the prompt for req and generates a composition
func (a *ComposerAgent) Compose(ctx context.Context, req models.GenerateRequest) (*Result, error) {
	bars := req.BarsOrDefault()
	userPrompt := a.promptBuilder.BuildCompositionPrompt(prompt.CompositionParams{
		Genre: req.Genre,
		Mood:  req.Mood,
		Tempo: req.Tempo,
		Bars:  bars,
	})
	return a.Generate(ctx, userPrompt, bars)
}

// Generate calls the provider until it returns a decodable composition.
// Undecodable output is retried up to MaxAttempts. Schema violations and
// provider failures end the run immediately.
func (a *ComposerAgent) Generate(ctx context.Context, userPrompt string, bars int) (*Result, error) {
	startTime := time.Now()
	log.Printf("🎵 COMPOSITION REQUEST STARTED (provider: %s, model: %s, bars: %d)", a.provider.Name(), a.opts.Model, bars)

	transaction := sentry.StartTransaction(ctx, "composition.generate")
	defer transaction.Finish()
	transaction.SetTag("model", a.opts.Model)
	transaction.SetTag("provider", a.provider.Name())
	transaction.SetTag("bars", fmt.Sprintf("%d", bars))
	ctx = transaction.Context()

	trace := observability.GetClient().StartTrace(ctx, "composition", map[string]any{
		"provider": a.provider.Name(),
		"model":    a.opts.Model,
		"bars":     bars,
	})
	defer trace.Finish()

	params := services.GetLLMParameters(bars, a.opts.MaxOutputTokens, a.opts.Temperature)
	request := &llm.GenerationRequest{
		Model:           a.opts.Model,
		InputArray:      []map[string]any{llm.UserMessage(userPrompt)},
		ReasoningMode:   a.opts.ReasoningMode,
		SystemPrompt:    a.promptBuilder.SystemPrompt(),
		OutputSchema:    llm.CompositionOutputSchema(),
		Temperature:     &params.Temperature,
		MaxOutputTokens: params.MaxOutputTokens,
	}

	var (
		usage      llm.Usage
		lastDecode *models.DecodeError
	)

	fail := func(err error) (*Result, error) {
		transaction.SetTag("success", "false")
		a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), false)
		if usage.TotalTokens > 0 {
			a.metrics.RecordTokenUsage(ctx, a.opts.Model, usage)
		}
		return nil, err
	}

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			log.Printf("⏹️  COMPOSITION CANCELLED before attempt %d: %v", attempt, err)
			transaction.SetTag("error_type", "cancelled")
			return fail(fmt.Errorf("generation cancelled before attempt %d: %w", attempt, err))
		}

		comp, resp, err := a.attempt(ctx, trace, request, attempt)
		if resp != nil {
			usage = usage.Add(resp.Usage)
		}

		var (
			decodeErr   *models.DecodeError
			providerErr *ProviderError
		)
		switch {
		case err == nil:
			return a.finish(ctx, comp, bars, attempt, usage, userPrompt, startTime, transaction)
		case errors.As(err, &decodeErr):
			lastDecode = decodeErr
		case errors.As(err, &providerErr):
			transaction.SetTag("error_type", "provider_error")
			return fail(err)
		default:
			transaction.SetTag("error_type", "schema_violation")
			return fail(err)
		}
	}

	transaction.SetTag("error_type", "invalid_output")
	log.Printf("❌ COMPOSITION FAILED: no decodable output after %d attempts", a.opts.MaxAttempts)
	return fail(fmt.Errorf("%w after %d attempts: %w", ErrInvalidOutput, a.opts.MaxAttempts, lastDecode))
}

// attempt makes one provider call and decodes its payload
func (a *ComposerAgent) attempt(
	ctx context.Context, trace *observability.Trace, request *llm.GenerationRequest, attempt int,
) (*models.Composition, *llm.GenerationResponse, error) {
	attemptStart := time.Now()
	gen := trace.Generation(fmt.Sprintf("composition-attempt-%d", attempt), map[string]any{
		"attempt":           attempt,
		"max_output_tokens": request.MaxOutputTokens,
	})
	defer gen.Finish()

	resp, err := a.provider.Generate(ctx, request)
	if err != nil {
		gen.SetLevel(observability.LevelError)
		gen.Metadata(map[string]any{"error": err.Error()})
		a.metrics.RecordGenerationAttempt(ctx, attempt, metrics.OutcomeProviderError, time.Since(attemptStart))
		logger.Error("Provider request failed", err, logger.Fields{
			"attempt":  attempt,
			"provider": a.provider.Name(),
			"model":    request.Model,
		})
		return nil, nil, &ProviderError{Provider: a.provider.Name(), Err: err}
	}
	if resp == nil {
		resp = &llm.GenerationResponse{}
	}

	gen.LogAttempt(request.Model, request.InputArray, resp.RawOutput, resp.Usage, nil)

	comp, err := models.DecodeComposition(resp.RawOutput)
	if err != nil {
		outcome := metrics.OutcomeSchemaViolation
		var decodeErr *models.DecodeError
		if errors.As(err, &decodeErr) {
			outcome = metrics.OutcomeDecodeError
			logger.Warn("Undecodable composition payload", logger.Fields{
				"attempt":  attempt,
				"provider": a.provider.Name(),
				"preview":  truncate(resp.RawOutput, maxPreviewLength),
				"error":    err.Error(),
			})
		} else {
			logger.Warn("Composition violates schema", logger.Fields{
				"attempt":  attempt,
				"provider": a.provider.Name(),
				"error":    err.Error(),
			})
		}
		gen.SetLevel(observability.LevelError)
		gen.Metadata(map[string]any{"error": err.Error(), "outcome": outcome})
		a.metrics.RecordGenerationAttempt(ctx, attempt, outcome, time.Since(attemptStart))
		return nil, resp, err
	}

	a.metrics.RecordGenerationAttempt(ctx, attempt, metrics.OutcomeSuccess, time.Since(attemptStart))
	log.Printf("✅ ATTEMPT %d DECODED: %d tracks, %d notes", attempt, len(comp.Tracks), comp.NoteCount())
	return comp, resp, nil
}

// finish repairs the length of a decoded composition and records the run
func (a *ComposerAgent) finish(
	ctx context.Context,
	comp *models.Composition,
	bars, attempts int,
	usage llm.Usage,
	userPrompt string,
	startTime time.Time,
	transaction *sentry.Span,
) (*Result, error) {
	span := transaction.StartChild("composition.length")
	final, report := services.EnsureLength(comp, bars)
	span.Finish()

	if extended := report.ExtendedCount(); extended > 0 {
		a.metrics.RecordLengthRepair(ctx, extended, len(final.Tracks))
	}

	duration := time.Since(startTime)
	transaction.SetTag("success", "true")
	transaction.SetTag("attempts", fmt.Sprintf("%d", attempts))
	a.metrics.RecordGenerationDuration(ctx, duration, true)
	a.metrics.RecordTokenUsage(ctx, a.opts.Model, usage)

	fields := logger.Fields{
		"provider": a.provider.Name(),
		"attempts": attempts,
		"bars":     bars,
	}
	logger.LogGenerationRequest(ctx, a.opts.Model, duration, map[string]interface{}{
		"total_tokens":  usage.TotalTokens,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	}, fields)
	logger.LogCompositionSummary(len(final.Tracks), final.NoteCount(), report.ExtendedCount(), report.ExpectedBeats, logger.Fields{
		"model": a.opts.Model,
	})

	return &Result{
		Composition: final,
		Report:      report,
		Attempts:    attempts,
		Usage:       usage,
		Prompt:      userPrompt,
		Duration:    duration,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
