package metrics

import (
	"sync"
	"time"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/llm"
)

// RenderStats counts one render stage
type RenderStats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Stats is a point-in-time copy of the pipeline counters
type Stats struct {
	Requests             int64                  `json:"requests"`
	ServerErrors         int64                  `json:"server_errors"`
	ClientErrors         int64                  `json:"client_errors"`
	AttemptsByOutcome    map[string]int64       `json:"attempts_by_outcome"`
	GenerationsSucceeded int64                  `json:"generations_succeeded"`
	GenerationsFailed    int64                  `json:"generations_failed"`
	AvgGenerationMillis  int64                  `json:"avg_generation_ms"`
	CompositionsExtended int64                  `json:"compositions_extended"`
	TracksExtended       int64                  `json:"tracks_extended"`
	TotalTokens          int64                  `json:"total_tokens"`
	RenderStages         map[string]RenderStats `json:"render_stages"`
}

// counters accumulates Stats since process start
type counters struct {
	mu                sync.Mutex
	stats             Stats
	generationElapsed time.Duration
}

func newCounters() *counters {
	return &counters{stats: Stats{
		AttemptsByOutcome: make(map[string]int64),
		RenderStages:      make(map[string]RenderStats),
	}}
}

func (c *counters) apiRequest(statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Requests++
	switch {
	case statusCode >= 500:
		c.stats.ServerErrors++
	case statusCode >= 400:
		c.stats.ClientErrors++
	}
}

func (c *counters) attempt(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.AttemptsByOutcome[outcome]++
}

func (c *counters) generation(duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.stats.GenerationsSucceeded++
	} else {
		c.stats.GenerationsFailed++
	}
	c.generationElapsed += duration
}

func (c *counters) tokens(usage llm.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.TotalTokens += usage.TotalTokens
}

func (c *counters) extension(extendedTracks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.CompositionsExtended++
	c.stats.TracksExtended += int64(extendedTracks)
}

func (c *counters) render(stage string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats.RenderStages[stage]
	if err != nil {
		s.Failed++
	} else {
		s.Succeeded++
	}
	c.stats.RenderStages[stage] = s
}

func (c *counters) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.stats
	out.AttemptsByOutcome = make(map[string]int64, len(c.stats.AttemptsByOutcome))
	for k, v := range c.stats.AttemptsByOutcome {
		out.AttemptsByOutcome[k] = v
	}
	out.RenderStages = make(map[string]RenderStats, len(c.stats.RenderStages))
	for k, v := range c.stats.RenderStages {
		out.RenderStages[k] = v
	}
	if runs := c.stats.GenerationsSucceeded + c.stats.GenerationsFailed; runs > 0 {
		out.AvgGenerationMillis = c.generationElapsed.Milliseconds() / runs
	}
	return out
}
