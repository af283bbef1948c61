package services

import (
	"math"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
)

// CoverageThreshold is the fraction of the expected length a track must reach
// before it is left alone.
const CoverageThreshold = 0.75

// TrackReport describes one track's length and density.
type TrackReport struct {
	Name         string            `json:"name"`
	Class        models.TrackClass `json:"class"`
	NoteCount    int               `json:"note_count"`
	MinNotes     int               `json:"min_notes"`
	Coverage     float64           `json:"coverage"`
	Insufficient bool              `json:"insufficient"`
	Extended     bool              `json:"extended"`
}

// BelowMinimum reports a note-count shortfall. It is informational only.
func (r TrackReport) BelowMinimum() bool {
	return r.NoteCount < r.MinNotes
}

// LengthReport is the result of checking a composition against its requested length.
type LengthReport struct {
	Bars          int           `json:"bars"`
	ExpectedBeats float64       `json:"expected_beats"`
	Tracks        []TrackReport `json:"tracks"`
}

// NeedsExtension reports whether any track is short of the threshold.
func (r LengthReport) NeedsExtension() bool {
	for _, t := range r.Tracks {
		if t.Insufficient {
			return true
		}
	}
	return false
}

// ExtendedCount returns how many tracks were extended.
func (r LengthReport) ExtendedCount() int {
	n := 0
	for _, t := range r.Tracks {
		if t.Extended {
			n++
		}
	}
	return n
}

// AnalyzeLength measures every track against bars * beatsPerMeasure.
func AnalyzeLength(c *models.Composition, bars int) LengthReport {
	expected := c.ExpectedBeats(bars)
	report := LengthReport{
		Bars:          bars,
		ExpectedBeats: expected,
		Tracks:        make([]TrackReport, 0, len(c.Tracks)),
	}

	for _, t := range c.Tracks {
		class := t.Class()
		coverage := t.Coverage()
		report.Tracks = append(report.Tracks, TrackReport{
			Name:         t.Name,
			Class:        class,
			NoteCount:    len(t.Notes),
			MinNotes:     models.MinNotes(class, bars),
			Coverage:     coverage,
			Insufficient: coverage < CoverageThreshold*expected,
		})
	}

	return report
}

// EnsureLength loops short tracks until they span the requested length.
// When nothing is short, c itself is returned. Otherwise a new composition
// is returned and c is left untouched.
func EnsureLength(c *models.Composition, bars int) (*models.Composition, LengthReport) {
	report := AnalyzeLength(c, bars)
	if !report.NeedsExtension() {
		return c, report
	}

	measure := float64(c.Metadata.TimeSignature.BeatsPerMeasure())
	tracks := make([]models.Track, len(c.Tracks))
	for i, t := range c.Tracks {
		if !report.Tracks[i].Insufficient {
			tracks[i] = t
			continue
		}
		tracks[i] = ExtendTrack(t, report.ExpectedBeats, measure)
		report.Tracks[i].Extended = len(t.Notes) > 0
	}

	return c.WithTracks(tracks), report
}

// ExtendTrack repeats a track's pattern until it fills expectedBeats.
// The pattern length is the track's coverage rounded half-to-even to whole
// measures, at least one measure. Copies starting at or past expectedBeats
// are dropped and durations are clipped to the boundary.
func ExtendTrack(track models.Track, expectedBeats, beatsPerMeasure float64) models.Track {
	if len(track.Notes) == 0 {
		return track
	}

	patternLength := math.RoundToEven(track.Coverage()/beatsPerMeasure) * beatsPerMeasure
	if patternLength <= 0 {
		patternLength = beatsPerMeasure
	}
	repetitions := int(math.Floor(expectedBeats/patternLength)) + 1

	notes := make([]models.Note, 0, len(track.Notes)*repetitions)
	for r := 0; r < repetitions; r++ {
		offset := float64(r) * patternLength
		for _, n := range track.Notes {
			start := n.StartTime + offset
			if start >= expectedBeats {
				continue
			}
			duration := math.Min(n.Duration, expectedBeats-start)
			if duration <= 0 {
				continue
			}
			notes = append(notes, models.Note{
				Pitch:     n.Pitch,
				StartTime: start,
				Duration:  duration,
				Velocity:  n.Velocity,
			})
		}
	}

	extended := track
	extended.Notes = notes
	return extended
}
