package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM providers.
// Providers return the raw text payload; decoding and validation belong to
// the caller so that malformed output can be retried.
type Provider interface {
	// Generate sends one request. An empty RawOutput with a nil error means
	// the model answered without usable text.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model         string
	InputArray    []map[string]any
	ReasoningMode string
	SystemPrompt  string
	// Structured output schema
	OutputSchema *OutputSchema
	// Temperature is ignored by reasoning models
	Temperature     *float64
	MaxOutputTokens int64
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Usage is token accounting normalised across providers.
type Usage struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens,omitempty"`
	TotalTokens     int64 `json:"total_tokens"`
}

// Add accumulates usage across attempts.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + other.InputTokens,
		OutputTokens:    u.OutputTokens + other.OutputTokens,
		ReasoningTokens: u.ReasoningTokens + other.ReasoningTokens,
		TotalTokens:     u.TotalTokens + other.TotalTokens,
	}
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"`
	Usage     Usage  `json:"usage"`
}

// UserMessage builds a single user input item.
func UserMessage(content string) map[string]any {
	return map[string]any{"role": userRole, "content": content}
}

// CleanJSONOutput strips markdown code fences that models sometimes wrap
// around JSON despite instructions.
func CleanJSONOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
