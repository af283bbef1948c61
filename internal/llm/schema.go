package llm

import "github.com/Conceptual-Machines/beatcanvas-api/internal/models"

const (
	compositionSchemaName        = "composition"
	compositionSchemaDescription = "A multi-track music loop with metadata and timed notes measured in beats"
)

// CompositionOutputSchema wraps the composition schema for providers.
func CompositionOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        compositionSchemaName,
		Description: compositionSchemaDescription,
		Schema:      GetCompositionSchema(),
	}
}

// GetCompositionSchema returns the JSON schema for a composition payload.
// Field names mirror the wire format decoded by models.DecodeComposition.
func GetCompositionSchema() map[string]any {
	midiValue := func() map[string]any {
		return map[string]any{"type": "integer", "minimum": models.MinMIDIValue, "maximum": models.MaxMIDIValue}
	}

	note := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pitch":      midiValue(),
			"start_time": map[string]any{"type": "number", "minimum": 0, "description": "Start position in beats"},
			"duration":   map[string]any{"type": "number", "maximum": models.MaxNoteDuration, "description": "Length in beats, greater than 0"},
			"velocity":   midiValue(),
		},
		"required":             []string{"pitch", "start_time", "duration", "velocity"},
		"additionalProperties": false,
	}

	track := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":         map[string]any{"type": "string"},
			"instrument":   map[string]any{"type": "string"},
			"midi_program": midiValue(),
			"notes":        map[string]any{"type": "array", "items": note},
		},
		"required":             []string{"name", "instrument", "midi_program", "notes"},
		"additionalProperties": false,
	}

	metadata := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tempo": map[string]any{"type": "integer", "minimum": models.MinTempo, "maximum": models.MaxTempo},
			"bars":  map[string]any{"type": "integer", "minimum": models.MinBars, "maximum": models.MaxBars},
			"time_signature": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "integer"},
				"minItems": 2,
				"maxItems": 2,
			},
			"key":   map[string]any{"type": "string", "description": "Root note, e.g. C, F# or Bb"},
			"scale": map[string]any{"type": "string", "enum": []string{string(models.ScaleMajor), string(models.ScaleMinor)}},
		},
		"required":             []string{"tempo", "bars", "time_signature", "key", "scale"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"metadata": metadata,
			"tracks":   map[string]any{"type": "array", "items": track, "minItems": 1},
		},
		"required":             []string{"metadata", "tracks"},
		"additionalProperties": false,
	}
}
