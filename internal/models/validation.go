package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Schema bounds shared by validation, the JSON schema sent to providers, and
// the prompt.
const (
	MinTempo        = 60
	MaxTempo        = 200
	MinBars         = 4
	MaxBars         = 16
	MinMIDIValue    = 0
	MaxMIDIValue    = 127
	MaxNoteDuration = 16.0
	MaxBeatsPerBar  = 16
)

// KeyPattern matches a root pitch name such as "C", "F#" or "Bb".
var KeyPattern = regexp.MustCompile(`^[A-G](#|b)?$`)

var validBeatUnits = map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true, 32: true}

// Violation is a single schema failure at a field path.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ValidationError is returned when a payload parses but does not satisfy the
// composition schema.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "composition failed schema validation: " + strings.Join(parts, "; ")
}

// ErrEmptyPayload marks a provider response with no usable text.
var ErrEmptyPayload = errors.New("empty payload")

// DecodeError is returned when a payload is missing or is not valid JSON.
type DecodeError struct {
	Err     error
	Preview string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode composition payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type violations []Violation

func (vs *violations) add(field, format string, args ...any) {
	*vs = append(*vs, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (vs violations) err() error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

// Validate checks every range and structural constraint of the schema.
func (c *Composition) Validate() error {
	var vs violations
	c.collectViolations(&vs)
	return vs.err()
}

func (c *Composition) collectViolations(vs *violations) {
	m := c.Metadata
	if m.Tempo < MinTempo || m.Tempo > MaxTempo {
		vs.add("metadata.tempo", "must be between %d and %d, got %d", MinTempo, MaxTempo, m.Tempo)
	}
	if m.Bars < MinBars || m.Bars > MaxBars {
		vs.add("metadata.bars", "must be between %d and %d, got %d", MinBars, MaxBars, m.Bars)
	}
	if num := m.TimeSignature[0]; num < 1 || num > MaxBeatsPerBar {
		vs.add("metadata.time_signature[0]", "must be between 1 and %d, got %d", MaxBeatsPerBar, num)
	}
	if den := m.TimeSignature[1]; !validBeatUnits[den] {
		vs.add("metadata.time_signature[1]", "must be a power of two up to 32, got %d", den)
	}
	if !KeyPattern.MatchString(m.Key) {
		vs.add("metadata.key", "must match %s, got %q", KeyPattern.String(), m.Key)
	}
	if m.Scale != ScaleMajor && m.Scale != ScaleMinor {
		vs.add("metadata.scale", "must be %q or %q, got %q", ScaleMajor, ScaleMinor, m.Scale)
	}

	if len(c.Tracks) == 0 {
		vs.add("tracks", "must contain at least one track")
		return
	}
	for i, t := range c.Tracks {
		prefix := fmt.Sprintf("tracks[%d]", i)
		if t.Program < MinMIDIValue || t.Program > MaxMIDIValue {
			vs.add(prefix+".midi_program", "must be between %d and %d, got %d", MinMIDIValue, MaxMIDIValue, t.Program)
		}
		for j, n := range t.Notes {
			collectNoteViolations(vs, fmt.Sprintf("%s.notes[%d]", prefix, j), n)
		}
	}
	if !c.WellFormed() {
		vs.add("tracks", "at least one track must contain a note")
	}
}

func collectNoteViolations(vs *violations, prefix string, n Note) {
	if n.Pitch < MinMIDIValue || n.Pitch > MaxMIDIValue {
		vs.add(prefix+".pitch", "must be between %d and %d, got %d", MinMIDIValue, MaxMIDIValue, n.Pitch)
	}
	if n.StartTime < 0 {
		vs.add(prefix+".start_time", "must be >= 0, got %g", n.StartTime)
	}
	if n.Duration <= 0 || n.Duration > MaxNoteDuration {
		vs.add(prefix+".duration", "must be > 0 and <= %g, got %g", MaxNoteDuration, n.Duration)
	}
	if n.Velocity < MinMIDIValue || n.Velocity > MaxMIDIValue {
		vs.add(prefix+".velocity", "must be between %d and %d, got %d", MinMIDIValue, MaxMIDIValue, n.Velocity)
	}
}
