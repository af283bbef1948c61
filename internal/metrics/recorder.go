package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/llm"
)

// Attempt outcomes
const (
	OutcomeSuccess         = "success"
	OutcomeDecodeError     = "decode_error"
	OutcomeSchemaViolation = "schema_violation"
	OutcomeProviderError   = "provider_error"
)

// Recorder fans metrics out to Sentry spans, CloudWatch (production only)
// and in-process counters served by /api/metrics.
type Recorder struct {
	sentry     *SentryMetrics
	cloudwatch *Client
	counters   *counters
}

// NewRecorder combines the sinks. cloudwatch may be nil.
func NewRecorder(cloudwatch *Client) *Recorder {
	return &Recorder{
		sentry:     NewSentryMetrics(),
		cloudwatch: cloudwatch,
		counters:   newCounters(),
	}
}

// Snapshot returns the counters accumulated since the recorder was created
func (r *Recorder) Snapshot() Stats {
	return r.counters.snapshot()
}

func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	r.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
	r.counters.apiRequest(statusCode)
}

func (r *Recorder) RecordTokenUsage(ctx context.Context, model string, usage llm.Usage) {
	r.sentry.RecordTokenUsage(ctx, model, usage)
	r.counters.tokens(usage)
}

func (r *Recorder) RecordGenerationAttempt(ctx context.Context, attempt int, outcome string, duration time.Duration) {
	r.sentry.RecordGenerationAttempt(ctx, attempt, outcome, duration)
	r.cloudwatch.RecordGenerationAttempt(outcome)
	r.counters.attempt(outcome)
}

func (r *Recorder) RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool) {
	r.sentry.RecordGenerationDuration(ctx, duration, success)
	r.cloudwatch.RecordGenerationDuration(duration, success)
	r.counters.generation(duration, success)
}

func (r *Recorder) RecordLengthRepair(ctx context.Context, extendedTracks, totalTracks int) {
	r.sentry.RecordLengthRepair(ctx, extendedTracks, totalTracks)
	r.cloudwatch.RecordTrackExtensions(extendedTracks)
	r.counters.extension(extendedTracks)
}

func (r *Recorder) RecordRender(ctx context.Context, stage string, duration time.Duration, err error) {
	r.sentry.RecordRender(ctx, stage, duration, err)
	r.cloudwatch.RecordRenderDuration(stage, duration, err == nil)
	r.counters.render(stage, err)
}
