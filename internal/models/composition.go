package models

import "strings"

// Scale is the tonal mode of a composition.
type Scale string

const (
	ScaleMajor Scale = "major"
	ScaleMinor Scale = "minor"
)

const defaultBeatsPerMeasure = 4

// TrackClass groups tracks for density expectations.
type TrackClass string

const (
	TrackClassDrums  TrackClass = "drums"
	TrackClassBass   TrackClass = "bass"
	TrackClassMelody TrackClass = "melody"
	TrackClassOther  TrackClass = "other"
)

// GenerateRequest wraps the user's composition parameters
type GenerateRequest struct {
	Genre string `json:"genre" binding:"required,min=1,max=50"`
	Mood  string `json:"mood" binding:"required,min=1,max=50"`
	Tempo *int   `json:"tempo,omitempty" binding:"omitempty,min=60,max=180"`
	Bars  int    `json:"bars" binding:"omitempty,min=4,max=16"`
}

// DefaultBars is used when a request leaves bars unset.
const DefaultBars = 8

// BarsOrDefault returns the requested bar count, or DefaultBars.
func (r GenerateRequest) BarsOrDefault() int {
	if r.Bars == 0 {
		return DefaultBars
	}
	return r.Bars
}

// TimeSignature is encoded on the wire as [beatsPerMeasure, beatUnit].
type TimeSignature [2]int

// BeatsPerMeasure returns the numerator, falling back to 4.
func (ts TimeSignature) BeatsPerMeasure() int {
	if ts[0] <= 0 {
		return defaultBeatsPerMeasure
	}
	return ts[0]
}

// BeatUnit returns the denominator, falling back to 4.
func (ts TimeSignature) BeatUnit() int {
	if ts[1] <= 0 {
		return defaultBeatsPerMeasure
	}
	return ts[1]
}

// CommonTime is 4/4.
var CommonTime = TimeSignature{4, 4}

type Metadata struct {
	Tempo         int           `json:"tempo"`
	Bars          int           `json:"bars"`
	TimeSignature TimeSignature `json:"time_signature"`
	Key           string        `json:"key"`
	Scale         Scale         `json:"scale"`
}

type Note struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
}

// End returns the beat at which the note stops sounding.
func (n Note) End() float64 {
	return n.StartTime + n.Duration
}

type Track struct {
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
	Program    int    `json:"midi_program"`
	Notes      []Note `json:"notes"`
}

// Coverage is the furthest beat reached by any note; 0 for an empty track.
func (t Track) Coverage() float64 {
	coverage := 0.0
	for _, n := range t.Notes {
		if end := n.End(); end > coverage {
			coverage = end
		}
	}
	return coverage
}

// Class classifies the track by name, case-insensitively.
func (t Track) Class() TrackClass {
	return ClassifyTrackName(t.Name)
}

// IsPercussion reports whether the track should play on the GM drum channel.
func (t Track) IsPercussion() bool {
	return t.Program == 0 && t.Class() == TrackClassDrums
}

// ClassifyTrackName maps a free-form track label onto a TrackClass.
func ClassifyTrackName(name string) TrackClass {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.Contains(n, "drum") || strings.Contains(n, "percussion"):
		return TrackClassDrums
	case strings.Contains(n, "bass"):
		return TrackClassBass
	case strings.Contains(n, "melody") || strings.Contains(n, "lead"):
		return TrackClassMelody
	default:
		return TrackClassOther
	}
}

// MinNotesPerBar is the expected note density for each class.
var MinNotesPerBar = map[TrackClass]int{
	TrackClassDrums:  8,
	TrackClassBass:   2,
	TrackClassMelody: 4,
	TrackClassOther:  2,
}

// MinNotes returns the minimum note count expected for a class over bars.
func MinNotes(class TrackClass, bars int) int {
	perBar, ok := MinNotesPerBar[class]
	if !ok {
		perBar = MinNotesPerBar[TrackClassOther]
	}
	return perBar * bars
}

// Composition is a complete multi-track piece as produced by the model.
type Composition struct {
	Metadata Metadata `json:"metadata"`
	Tracks   []Track  `json:"tracks"`
}

// ExpectedBeats is the length in beats implied by bars and the meter.
func (c *Composition) ExpectedBeats(bars int) float64 {
	return float64(bars * c.Metadata.TimeSignature.BeatsPerMeasure())
}

// NoteCount returns the number of notes across all tracks.
func (c *Composition) NoteCount() int {
	total := 0
	for _, t := range c.Tracks {
		total += len(t.Notes)
	}
	return total
}

// WellFormed reports whether at least one track carries a note.
func (c *Composition) WellFormed() bool {
	for _, t := range c.Tracks {
		if len(t.Notes) > 0 {
			return true
		}
	}
	return false
}

// WithTracks returns a copy of c that shares metadata but owns the given tracks.
func (c *Composition) WithTracks(tracks []Track) *Composition {
	return &Composition{
		Metadata: c.Metadata,
		Tracks:   tracks,
	}
}
