package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
)

func testComposition() *models.Composition {
	return &models.Composition{
		Metadata: models.Metadata{
			Tempo:         120,
			Bars:          4,
			TimeSignature: models.CommonTime,
			Key:           "C",
			Scale:         models.ScaleMajor,
		},
		Tracks: []models.Track{
			{Name: "Drums", Instrument: "Kit", Program: 0, Notes: []models.Note{
				{Pitch: 36, StartTime: 0, Duration: 0.5, Velocity: 100},
				{Pitch: 38, StartTime: 1, Duration: 0.5, Velocity: 90},
			}},
			{Name: "Bass", Instrument: "Finger Bass", Program: 33, Notes: []models.Note{
				{Pitch: 36, StartTime: 0, Duration: 1, Velocity: 80},
				{Pitch: 36, StartTime: 1, Duration: 1, Velocity: 0},
			}},
		},
	}
}

type readNote struct {
	tick uint32
	on   bool
	ch   uint8
	key  uint8
}

func readNotes(track smf.Track) []readNote {
	var (
		notes []readNote
		tick  uint32
	)
	for _, ev := range track {
		tick += ev.Delta
		msg := midi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteOn(&ch, &key, &vel):
			notes = append(notes, readNote{tick: tick, on: true, ch: ch, key: key})
		case msg.GetNoteOff(&ch, &key, &vel):
			notes = append(notes, readNote{tick: tick, on: false, ch: ch, key: key})
		}
	}
	return notes
}

func TestWriteMIDI(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMIDI(testComposition(), &buf))

	s, err := smf.ReadFrom(&buf)
	require.NoError(t, err)

	// tempo track plus one per composition track
	require.Len(t, s.Tracks, 3)
	assert.Equal(t, smf.MetricTicks(TicksPerQuarter), s.TimeFormat)

	var bpm float64
	foundTempo := false
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			foundTempo = true
		}
	}
	require.True(t, foundTempo)
	assert.InDelta(t, 120.0, bpm, 0.01)

	drums := readNotes(s.Tracks[1])
	require.Len(t, drums, 4)
	assert.Equal(t, readNote{tick: 0, on: true, ch: PercussionChannel, key: 36}, drums[0])
	assert.Equal(t, readNote{tick: 480, on: false, ch: PercussionChannel, key: 36}, drums[1])
	assert.Equal(t, readNote{tick: 960, on: true, ch: PercussionChannel, key: 38}, drums[2])

	bass := readNotes(s.Tracks[2])
	require.Len(t, bass, 4)
	for _, n := range bass {
		assert.Equal(t, uint8(0), n.ch)
	}
	// repeated pitch at tick 960: note-off precedes note-on
	assert.Equal(t, readNote{tick: 960, on: false, ch: 0, key: 36}, bass[1])
	assert.Equal(t, readNote{tick: 960, on: true, ch: 0, key: 36}, bass[2])
}

func TestWriteMIDI_ProgramChange(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMIDI(testComposition(), &buf))

	s, err := smf.ReadFrom(&buf)
	require.NoError(t, err)

	var ch, program uint8
	found := false
	for _, ev := range s.Tracks[2] {
		if midi.Message(ev.Message).GetProgramChange(&ch, &program) {
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, uint8(33), program)
}

func TestWriteMIDI_SubTickNoteIsReleased(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		dur   float64
	}{
		{"at zero", 0, 0.0001},
		{"mid bar", 2, 0.0004},
		{"clipped tail", 15.9999, 0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := testComposition()
			comp.Tracks = []models.Track{{Name: "Lead", Instrument: "Saw", Program: 81, Notes: []models.Note{
				{Pitch: 60, StartTime: tt.start, Duration: tt.dur, Velocity: 100},
			}}}

			var buf bytes.Buffer
			require.NoError(t, WriteMIDI(comp, &buf))

			s, err := smf.ReadFrom(&buf)
			require.NoError(t, err)

			notes := readNotes(s.Tracks[1])
			require.Len(t, notes, 2)
			assert.True(t, notes[0].on, "note-on must come first")
			assert.False(t, notes[1].on)
			assert.Equal(t, notes[0].tick+1, notes[1].tick)
		})
	}
}

func TestWriteMIDI_TickOverflow(t *testing.T) {
	comp := testComposition()
	comp.Tracks[1].Notes = append(comp.Tracks[1].Notes,
		models.Note{Pitch: 40, StartTime: 5e6, Duration: 1, Velocity: 90})

	err := WriteMIDI(comp, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTickOverflow)
	assert.Contains(t, err.Error(), "Bass")
}

func TestWriteMIDI_InvalidTempo(t *testing.T) {
	comp := testComposition()
	comp.Metadata.Tempo = 0

	assert.Error(t, WriteMIDI(comp, &bytes.Buffer{}))
}

func TestAssignChannels(t *testing.T) {
	tracks := make([]models.Track, 0, 12)
	tracks = append(tracks, models.Track{Name: "Drums", Program: 0})
	for i := 0; i < 11; i++ {
		tracks = append(tracks, models.Track{Name: "Synth", Program: 80})
	}

	channels := AssignChannels(tracks)

	assert.Equal(t, uint8(PercussionChannel), channels[0])
	assert.Equal(t, []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 11}, channels[1:])
}

func TestAssignChannels_DrumsWithMelodicProgram(t *testing.T) {
	channels := AssignChannels([]models.Track{
		{Name: "Bass", Program: 33},
		{Name: "Percussion", Program: 0},
		{Name: "Synth Drums", Program: 118},
	})

	assert.Equal(t, []uint8{0, PercussionChannel, 1}, channels)
}
