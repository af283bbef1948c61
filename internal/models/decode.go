package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const payloadPreviewChars = 200

// Wire types keep every field optional so that missing keys can be reported
// as violations instead of silently becoming zero values.
type wireComposition struct {
	Metadata *wireMetadata `json:"metadata"`
	Tracks   *[]wireTrack  `json:"tracks"`
}

type wireMetadata struct {
	Tempo         *json.Number  `json:"tempo"`
	Bars          *json.Number  `json:"bars"`
	TimeSignature []json.Number `json:"time_signature"`
	Key           *string       `json:"key"`
	Scale         *string       `json:"scale"`
}

type wireTrack struct {
	Name       *string      `json:"name"`
	Instrument *string      `json:"instrument"`
	Program    *json.Number `json:"midi_program"`
	Notes      *[]wireNote  `json:"notes"`
}

type wireNote struct {
	Pitch     *json.Number `json:"pitch"`
	StartTime *json.Number `json:"start_time"`
	Duration  *json.Number `json:"duration"`
	Velocity  *json.Number `json:"velocity"`
}

// DecodeComposition parses a raw provider payload.
//
// A missing or syntactically invalid payload yields *DecodeError. A payload
// that parses but breaks the schema yields *ValidationError.
func DecodeComposition(payload string) (*Composition, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, &DecodeError{Err: ErrEmptyPayload}
	}

	if !json.Valid([]byte(trimmed)) {
		var probe any
		err := json.Unmarshal([]byte(trimmed), &probe)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &DecodeError{Err: err, Preview: preview(trimmed)}
	}

	var wire wireComposition
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "payload"
			}
			return nil, &ValidationError{Violations: []Violation{{
				Field:   field,
				Message: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
			}}}
		}
		return nil, &ValidationError{Violations: []Violation{{Field: "payload", Message: err.Error()}}}
	}

	var vs violations
	comp := wire.toComposition(&vs)
	if len(vs) > 0 {
		return nil, vs.err()
	}
	if err := comp.Validate(); err != nil {
		return nil, err
	}
	return comp, nil
}

func (w wireComposition) toComposition(vs *violations) *Composition {
	comp := &Composition{}
	if w.Metadata == nil {
		vs.add("metadata", "field required")
	} else {
		comp.Metadata = w.Metadata.toMetadata(vs)
	}

	if w.Tracks == nil {
		vs.add("tracks", "field required")
		return comp
	}
	comp.Tracks = make([]Track, 0, len(*w.Tracks))
	for i, wt := range *w.Tracks {
		comp.Tracks = append(comp.Tracks, wt.toTrack(vs, fmt.Sprintf("tracks[%d]", i)))
	}
	return comp
}

func (w wireMetadata) toMetadata(vs *violations) Metadata {
	m := Metadata{
		Tempo:         requiredInt(vs, "metadata.tempo", w.Tempo),
		Bars:          requiredInt(vs, "metadata.bars", w.Bars),
		Key:           requiredString(vs, "metadata.key", w.Key),
		Scale:         Scale(requiredString(vs, "metadata.scale", w.Scale)),
		TimeSignature: CommonTime,
	}
	if w.TimeSignature != nil {
		if len(w.TimeSignature) != 2 {
			vs.add("metadata.time_signature", "must have exactly two entries, got %d", len(w.TimeSignature))
		} else {
			m.TimeSignature = TimeSignature{
				requiredInt(vs, "metadata.time_signature[0]", &w.TimeSignature[0]),
				requiredInt(vs, "metadata.time_signature[1]", &w.TimeSignature[1]),
			}
		}
	}
	return m
}

func (w wireTrack) toTrack(vs *violations, prefix string) Track {
	t := Track{
		Name:       requiredString(vs, prefix+".name", w.Name),
		Instrument: requiredString(vs, prefix+".instrument", w.Instrument),
		Program:    requiredInt(vs, prefix+".midi_program", w.Program),
	}
	if w.Notes == nil {
		vs.add(prefix+".notes", "field required")
		return t
	}
	t.Notes = make([]Note, 0, len(*w.Notes))
	for j, wn := range *w.Notes {
		p := fmt.Sprintf("%s.notes[%d]", prefix, j)
		t.Notes = append(t.Notes, Note{
			Pitch:     requiredInt(vs, p+".pitch", wn.Pitch),
			StartTime: requiredFloat(vs, p+".start_time", wn.StartTime),
			Duration:  requiredFloat(vs, p+".duration", wn.Duration),
			Velocity:  requiredInt(vs, p+".velocity", wn.Velocity),
		})
	}
	return t
}

func requiredString(vs *violations, field string, s *string) string {
	if s == nil {
		vs.add(field, "field required")
		return ""
	}
	return *s
}

func requiredFloat(vs *violations, field string, n *json.Number) float64 {
	if n == nil {
		vs.add(field, "field required")
		return 0
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		vs.add(field, "must be a number, got %q", n.String())
		return 0
	}
	return f
}

// requiredInt accepts integral floats such as 120.0.
func requiredInt(vs *violations, field string, n *json.Number) int {
	if n == nil {
		vs.add(field, "field required")
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		vs.add(field, "must be an integer, got %s", n.String())
		return 0
	}
	return int(f)
}

func preview(s string) string {
	if len(s) <= payloadPreviewChars {
		return s
	}
	return s[:payloadPreviewChars] + "..."
}
