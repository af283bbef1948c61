package prompt

import (
	"strings"
	"testing"
)

func TestNewPromptLoader(t *testing.T) {
	loader := NewPromptLoader()
	if loader == nil {
		t.Fatal("NewPromptLoader() returned nil")
	}
}

func TestGetSystemPrompt(t *testing.T) {
	loader := NewPromptLoader()
	content, err := loader.GetSystemPrompt()

	if err != nil {
		t.Fatalf("GetSystemPrompt() returned error: %v", err)
	}

	if !strings.Contains(content, "professional music composer") {
		t.Error("GetSystemPrompt() does not contain expected content")
	}

	if strings.HasPrefix(content, "\n") || strings.HasSuffix(content, "\n") {
		t.Error("GetSystemPrompt() was not trimmed")
	}
}

func TestGetKnowledge(t *testing.T) {
	loader := NewPromptLoader()
	knowledge, err := loader.GetKnowledge()
	if err != nil {
		t.Fatalf("GetKnowledge() returned error: %v", err)
	}

	for _, key := range []string{"edm", "hiphop", "jazz", "rock", "ambient"} {
		guide, ok := knowledge.Genres[key]
		if !ok {
			t.Errorf("genre %q missing", key)
			continue
		}
		if guide.TempoRange == "" || guide.Description == "" {
			t.Errorf("genre %q has empty tempo range or description", key)
		}
	}

	for _, key := range []string{"happy", "sad", "energetic", "calm"} {
		if _, ok := knowledge.Moods[key]; !ok {
			t.Errorf("mood %q missing", key)
		}
	}

	pitches := map[int]bool{}
	for _, voice := range knowledge.DrumMap {
		pitches[voice.Pitch] = true
	}
	for _, pitch := range []int{36, 38, 42, 46, 49, 51, 41, 48} {
		if !pitches[pitch] {
			t.Errorf("drum map missing pitch %d", pitch)
		}
	}
}

func TestNormalizeGenre(t *testing.T) {
	tests := map[string]string{
		"Hip-Hop":       "hiphop",
		" hip hop ":     "hiphop",
		"drum_and_bass": "drumandbass",
		"EDM":           "edm",
	}
	for in, want := range tests {
		if got := NormalizeGenre(in); got != want {
			t.Errorf("NormalizeGenre(%q) = %q, want %q", in, got, want)
		}
	}
}
