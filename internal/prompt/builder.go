package prompt

import (
	"fmt"
	"log"
	"strings"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
)

const (
	defaultTempoRange       = "90-130"
	defaultGenreDescription = "General music style"
	defaultMoodDescription  = "Appropriate to the specified mood"
	beatsPerBar             = 4
)

// CompositionParams are the user-facing knobs for one composition.
type CompositionParams struct {
	Genre string
	Mood  string
	Tempo *int
	Bars  int
}

// Builder builds prompts for the composer agent
type Builder struct {
	loader       *Loader
	knowledge    *Knowledge
	systemPrompt string
}

// NewPromptBuilder creates a new prompt builder. If the embedded tables cannot
// be parsed every lookup falls back to generic guidance.
func NewPromptBuilder() *Builder {
	loader := NewPromptLoader()

	knowledge, err := loader.GetKnowledge()
	if err != nil {
		log.Printf("⚠️  Failed to load prompt knowledge tables, using defaults: %v", err)
		knowledge = &Knowledge{}
	}
	systemPrompt, err := loader.GetSystemPrompt()
	if err != nil {
		log.Printf("⚠️  Failed to load system prompt: %v", err)
	}

	return &Builder{
		loader:       loader,
		knowledge:    knowledge,
		systemPrompt: systemPrompt,
	}
}

// SystemPrompt returns the system instruction sent alongside every prompt.
func (b *Builder) SystemPrompt() string {
	return b.systemPrompt
}

// Genre returns the guidance for genre, or the generic default.
func (b *Builder) Genre(genre string) GenreGuide {
	if guide, ok := b.knowledge.Genres[NormalizeGenre(genre)]; ok {
		if guide.TempoRange == "" {
			guide.TempoRange = defaultTempoRange
		}
		return guide
	}
	return GenreGuide{TempoRange: defaultTempoRange, Description: defaultGenreDescription}
}

// Mood returns the guidance for mood, or the generic default.
func (b *Builder) Mood(mood string) MoodGuide {
	if guide, ok := b.knowledge.Moods[NormalizeMood(mood)]; ok {
		return guide
	}
	return MoodGuide{Description: defaultMoodDescription}
}

// BuildCompositionPrompt renders the generation instruction. The output only
// depends on params and the embedded tables.
func (b *Builder) BuildCompositionPrompt(params CompositionParams) string {
	bars := params.Bars
	if bars <= 0 {
		bars = models.DefaultBars
	}
	expectedBeats := bars * beatsPerBar
	genre := b.Genre(params.Genre)
	mood := b.Mood(params.Mood)

	var tempoInstruction string
	if params.Tempo != nil {
		tempoInstruction = fmt.Sprintf("Use exactly %d BPM as specified.", *params.Tempo)
	} else {
		tempoInstruction = fmt.Sprintf("Choose an appropriate tempo in the range %s BPM based on the genre.", genre.TempoRange)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate a %d-bar music loop in JSON format.\n\n", bars)

	sb.WriteString("**CRITICAL REQUIREMENTS:**\n")
	fmt.Fprintf(&sb, "Genre: %s\nMood: %s\nBars: %d bars\n%s\n\n", params.Genre, params.Mood, bars, tempoInstruction)

	sb.WriteString("**COMPOSITION LENGTH:**\n")
	fmt.Fprintf(&sb, "- You MUST create EXACTLY %d bars of music in 4/4 time\n", bars)
	fmt.Fprintf(&sb, "- %d bars = %d beats (quarter notes) in total\n", bars, expectedBeats)
	fmt.Fprintf(&sb, "- Every note start_time MUST be >= 0 and < %d\n", expectedBeats)
	fmt.Fprintf(&sb, "- Notes must be distributed across the whole range from 0 to %d beats, not just the first few bars\n", expectedBeats)
	fmt.Fprintf(&sb, "- The last notes of every track should end near beat %d so the loop repeats seamlessly\n\n", expectedBeats)

	sb.WriteString("**TRACKS AND MINIMUM NOTE COUNTS:**\n")
	fmt.Fprintf(&sb, "- drums (required): midi_program 0, kick/snare/hi-hat pattern, at least %d notes\n",
		models.MinNotes(models.TrackClassDrums, bars))
	fmt.Fprintf(&sb, "- bass (required): midi_program 32-39, at least %d notes\n",
		models.MinNotes(models.TrackClassBass, bars))
	fmt.Fprintf(&sb, "- melody (required): midi_program 0-7 (piano), 24-31 (guitar) or 80-87 (synth lead), at least %d notes\n",
		models.MinNotes(models.TrackClassMelody, bars))
	fmt.Fprintf(&sb, "- chords or any other track (optional): midi_program 0-7 (piano) or 48-55 (strings), at least %d notes\n\n",
		models.MinNotes(models.TrackClassOther, bars))

	fmt.Fprintf(&sb, "**GENRE GUIDELINES (%s):**\n", params.Genre)
	fmt.Fprintf(&sb, "- %s\n- Tempo range: %s BPM\n", genre.Description, genre.TempoRange)
	writeHint(&sb, "Rhythm", genre.Rhythm)
	writeHint(&sb, "Harmony", genre.Harmony)
	writeHint(&sb, "Instruments (GM programs)", genre.Instruments)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "**MOOD GUIDELINES (%s):**\n", params.Mood)
	fmt.Fprintf(&sb, "- %s\n", mood.Description)
	writeHint(&sb, "Velocity range", mood.Velocity)
	writeHint(&sb, "Preferred scale", mood.Scale)
	sb.WriteString("\n")

	sb.WriteString("**KEY AND SCALE:**\n")
	sb.WriteString("- key is a root note C, D, E, F, G, A or B with an optional # or b\n")
	sb.WriteString("- scale is \"major\" for uplifting moods or \"minor\" for melancholic moods\n\n")

	if len(b.knowledge.DrumMap) > 0 {
		sb.WriteString("**MIDI DRUM MAP (pitch values):**\n")
		for _, voice := range b.knowledge.DrumMap {
			fmt.Fprintf(&sb, "- %d: %s\n", voice.Pitch, voice.Name)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("**NOTE RULES:**\n")
	fmt.Fprintf(&sb, "- pitch and velocity are integers %d-%d\n", models.MinMIDIValue, models.MaxMIDIValue)
	fmt.Fprintf(&sb, "- duration is in beats, greater than 0 and at most %g\n", models.MaxNoteDuration)
	sb.WriteString("- align notes to whole, half, quarter, eighth or sixteenth subdivisions\n\n")

	sb.WriteString("**OUTPUT FORMAT:**\n")
	sb.WriteString("Return ONLY valid JSON with exactly this structure (no additional text):\n\n")
	sb.WriteString(outputTemplate(bars, expectedBeats))
	sb.WriteString("\nGenerate a musically coherent, genre-appropriate and mood-fitting composition. Output valid JSON only.")

	return sb.String()
}

func writeHint(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, value)
}

func outputTemplate(bars, expectedBeats int) string {
	return fmt.Sprintf(`{
  "metadata": {
    "tempo": <integer %d-%d>,
    "bars": %d,
    "time_signature": [4, 4],
    "key": "<string>",
    "scale": "<major or minor>"
  },
  "tracks": [
    {
      "name": "drums",
      "instrument": "drums",
      "midi_program": 0,
      "notes": [
        {
          "pitch": <integer 0-127>,
          "start_time": <float >= 0 and < %d>,
          "duration": <float>,
          "velocity": <integer 0-127>
        }
      ]
    },
    {
      "name": "bass",
      "instrument": "<bass instrument>",
      "midi_program": <integer 32-39>,
      "notes": [...]
    },
    {
      "name": "melody",
      "instrument": "<melodic instrument>",
      "midi_program": <integer>,
      "notes": [...]
    }
  ]
}
`, models.MinTempo, models.MaxTempo, bars, expectedBeats)
}
