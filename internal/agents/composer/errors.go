package composer

import (
	"errors"
	"fmt"
)

// ErrInvalidOutput is returned once every attempt produced output that could
// not be decoded. The last *models.DecodeError is wrapped alongside it.
var ErrInvalidOutput = errors.New("generation failed: invalid output")

// ProviderError wraps a transport or API failure from the LLM provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
