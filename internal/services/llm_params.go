package services

const (
	// BaseOutputTokens covers metadata and JSON structure.
	BaseOutputTokens = 2000
	// OutputTokensPerBar approximates the note payload of one bar across all tracks.
	OutputTokensPerBar = 600
	// DefaultMaxOutputTokens caps the budget when config does not.
	DefaultMaxOutputTokens = 16384
	// DefaultTemperature favours variety over repeatability.
	DefaultTemperature = 0.8
)

// LLMParameters contains the sampling configuration for a composition call
type LLMParameters struct {
	Temperature     float64
	MaxOutputTokens int64
}

// GetLLMParameters returns the parameters for a composition of the given length.
// The output budget grows with bars and is clamped at ceiling.
func GetLLMParameters(bars int, ceiling int64, temperature float64) LLMParameters {
	if ceiling <= 0 {
		ceiling = DefaultMaxOutputTokens
	}
	if temperature < 0 {
		temperature = DefaultTemperature
	}

	return LLMParameters{
		Temperature:     temperature,
		MaxOutputTokens: OutputBudget(bars, ceiling),
	}
}

// OutputBudget returns min(BaseOutputTokens + OutputTokensPerBar*bars, ceiling).
func OutputBudget(bars int, ceiling int64) int64 {
	budget := int64(BaseOutputTokens + OutputTokensPerBar*bars)
	if budget > ceiling {
		return ceiling
	}
	return budget
}
