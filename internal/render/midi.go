package render

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/services"
)

const (
	// TicksPerQuarter is the MIDI file resolution
	TicksPerQuarter = 960

	// PercussionChannel is GM channel 10, zero-based
	PercussionChannel = 9
	channelCount      = 16
)

type noteEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// WriteMIDI encodes comp as a format 1 standard MIDI file.
// Track 0 holds tempo and meter; each composition track follows in order.
func WriteMIDI(comp *models.Composition, w io.Writer) error {
	conv, err := services.NewConverter(comp.Metadata.Tempo)
	if err != nil {
		return fmt.Errorf("midi: %w", err)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(float64(conv.Tempo())))
	ts := comp.Metadata.TimeSignature
	conductor.Add(0, smf.MetaMeter(uint8(ts.BeatsPerMeasure()), uint8(ts.BeatUnit())))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("midi: add tempo track: %w", err)
	}

	channels := AssignChannels(comp.Tracks)
	for i, t := range comp.Tracks {
		tr, err := buildTrack(t, channels[i], conv)
		if err != nil {
			return fmt.Errorf("midi: %w", err)
		}
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("midi: add track %q: %w", t.Name, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write: %w", err)
	}
	return nil
}

// AssignChannels gives percussion tracks channel 9 and melodic tracks
// channels 0..15 in order, skipping 9. Melodic channels wrap after 15.
func AssignChannels(tracks []models.Track) []uint8 {
	channels := make([]uint8, len(tracks))
	next := 0
	for i, t := range tracks {
		if t.IsPercussion() {
			channels[i] = PercussionChannel
			continue
		}
		if next == PercussionChannel {
			next++
		}
		channels[i] = uint8(next % channelCount)
		next = (next + 1) % channelCount
	}
	return channels
}

func buildTrack(t models.Track, channel uint8, conv *services.Converter) (smf.Track, error) {
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(t.Name))
	tr.Add(0, midi.ProgramChange(channel, clamp7(t.Program)))

	events := make([]noteEvent, 0, len(t.Notes)*2)
	for _, n := range t.Notes {
		timed := conv.Convert(n)
		startTick, err := secondsToTicks(timed.StartSeconds, conv)
		if err != nil {
			return tr, fmt.Errorf("track %q: %w", t.Name, err)
		}
		endTick, err := secondsToTicks(timed.EndSeconds, conv)
		if err != nil {
			return tr, fmt.Errorf("track %q: %w", t.Name, err)
		}
		// a note shorter than a tick still needs its note-off after the note-on
		if endTick <= startTick {
			if startTick == math.MaxUint32 {
				return tr, fmt.Errorf("track %q: %w", t.Name, ErrTickOverflow)
			}
			endTick = startTick + 1
		}

		key := clamp7(n.Pitch)
		// velocity 0 would be read back as a note-off
		vel := max(clamp7(n.Velocity), 1)
		events = append(events,
			noteEvent{tick: startTick, on: true, key: key, vel: vel},
			noteEvent{tick: endTick, on: false, key: key},
		)
	}

	// note-offs first at equal ticks so repeated pitches retrigger
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			tr.Add(delta, midi.NoteOn(channel, ev.key, ev.vel))
		} else {
			tr.Add(delta, midi.NoteOff(channel, ev.key))
		}
	}
	tr.Close(0)
	return tr, nil
}

// secondsToTicks fails with ErrTickOverflow past the 32-bit tick range
func secondsToTicks(seconds float64, conv *services.Converter) (uint32, error) {
	ticks := math.Round(seconds / conv.SecondsPerBeat() * TicksPerQuarter)
	if ticks < 0 || ticks > math.MaxUint32 || math.IsNaN(ticks) {
		return 0, fmt.Errorf("%w: %.0f ticks", ErrTickOverflow, ticks)
	}
	return uint32(ticks), nil
}

func clamp7(v int) uint8 {
	return uint8(min(max(v, models.MinMIDIValue), models.MaxMIDIValue))
}
