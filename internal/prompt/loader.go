package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/beatcanvas-api/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// GenreGuide describes how a genre should be voiced.
type GenreGuide struct {
	TempoRange  string `yaml:"tempo_range"`
	Description string `yaml:"description"`
	Rhythm      string `yaml:"rhythm"`
	Harmony     string `yaml:"harmony"`
	Instruments string `yaml:"instruments"`
}

// MoodGuide describes how a mood should shape dynamics and tonality.
type MoodGuide struct {
	Description string `yaml:"description"`
	Velocity    string `yaml:"velocity"`
	Scale       string `yaml:"scale"`
}

// DrumVoice is one General MIDI percussion key.
type DrumVoice struct {
	Name  string `yaml:"name"`
	Pitch int    `yaml:"pitch"`
}

// Knowledge holds the parsed genre, mood and drum tables.
type Knowledge struct {
	Genres  map[string]GenreGuide
	Moods   map[string]MoodGuide
	DrumMap []DrumVoice
}

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the main system prompt
func (l *Loader) GetSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.SystemPromptTxt)), nil
}

// GetKnowledge parses the embedded knowledge tables. Table keys are
// normalised the same way lookups are.
func (l *Loader) GetKnowledge() (*Knowledge, error) {
	var genres map[string]GenreGuide
	if err := yaml.Unmarshal(embedded.GenresYAML, &genres); err != nil {
		return nil, fmt.Errorf("parse genres.yaml: %w", err)
	}
	var moods map[string]MoodGuide
	if err := yaml.Unmarshal(embedded.MoodsYAML, &moods); err != nil {
		return nil, fmt.Errorf("parse moods.yaml: %w", err)
	}
	var drums []DrumVoice
	if err := yaml.Unmarshal(embedded.DrumMapYAML, &drums); err != nil {
		return nil, fmt.Errorf("parse drum_map.yaml: %w", err)
	}

	k := &Knowledge{
		Genres:  make(map[string]GenreGuide, len(genres)),
		Moods:   make(map[string]MoodGuide, len(moods)),
		DrumMap: drums,
	}
	for name, guide := range genres {
		k.Genres[NormalizeGenre(name)] = guide
	}
	for name, guide := range moods {
		k.Moods[NormalizeMood(name)] = guide
	}
	return k, nil
}

// NormalizeGenre lowercases and strips separators so "Hip-Hop", "hip hop"
// and "hiphop" share a key.
func NormalizeGenre(genre string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(genre)))
}

// NormalizeMood lowercases and trims the mood.
func NormalizeMood(mood string) string {
	return strings.ToLower(strings.TrimSpace(mood))
}
