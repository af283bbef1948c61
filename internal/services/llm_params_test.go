package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLLMParameters(t *testing.T) {
	tests := []struct {
		name        string
		bars        int
		ceiling     int64
		temperature float64
		wantTokens  int64
		wantTemp    float64
	}{
		{"4 bars", 4, 16384, 0.8, 4400, 0.8},
		{"16 bars", 16, 16384, 0.8, 11600, 0.8},
		{"clamped at ceiling", 16, 8000, 0.5, 8000, 0.5},
		{"default ceiling", 8, 0, 0.8, 6800, 0.8},
		{"negative temperature falls back", 8, 16384, -1, 6800, DefaultTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := GetLLMParameters(tt.bars, tt.ceiling, tt.temperature)
			assert.Equal(t, tt.wantTokens, params.MaxOutputTokens)
			assert.Equal(t, tt.wantTemp, params.Temperature)
		})
	}
}
