package services

import (
	"fmt"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
)

// TimedNote is a note placed on the wall clock.
type TimedNote struct {
	Pitch        int     `json:"pitch"`
	Velocity     int     `json:"velocity"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// TimedTrack is a track with its notes converted to seconds.
type TimedTrack struct {
	Name    string      `json:"name"`
	Program int         `json:"midi_program"`
	Notes   []TimedNote `json:"notes"`
}

// Converter maps beat positions to seconds at a fixed tempo.
type Converter struct {
	tempo          int
	secondsPerBeat float64
}

// NewConverter returns a converter for tempo in BPM.
func NewConverter(tempo int) (*Converter, error) {
	if tempo <= 0 {
		return nil, fmt.Errorf("tempo must be positive, got %d", tempo)
	}
	return &Converter{
		tempo:          tempo,
		secondsPerBeat: 60.0 / float64(tempo),
	}, nil
}

// Tempo returns the BPM the converter was built with.
func (c *Converter) Tempo() int {
	return c.tempo
}

func (c *Converter) SecondsPerBeat() float64 {
	return c.secondsPerBeat
}

// Seconds converts a beat position to seconds.
func (c *Converter) Seconds(beats float64) float64 {
	return beats * c.secondsPerBeat
}

func (c *Converter) Convert(note models.Note) TimedNote {
	return TimedNote{
		Pitch:        note.Pitch,
		Velocity:     note.Velocity,
		StartSeconds: c.Seconds(note.StartTime),
		EndSeconds:   c.Seconds(note.End()),
	}
}

func (c *Converter) ConvertTrack(track models.Track) []TimedNote {
	out := make([]TimedNote, len(track.Notes))
	for i, n := range track.Notes {
		out[i] = c.Convert(n)
	}
	return out
}

// TimelineFor converts every track of comp at its declared tempo.
func TimelineFor(comp *models.Composition) ([]TimedTrack, error) {
	conv, err := NewConverter(comp.Metadata.Tempo)
	if err != nil {
		return nil, err
	}

	timeline := make([]TimedTrack, len(comp.Tracks))
	for i, t := range comp.Tracks {
		timeline[i] = TimedTrack{
			Name:    t.Name,
			Program: t.Program,
			Notes:   conv.ConvertTrack(t),
		}
	}
	return timeline, nil
}
