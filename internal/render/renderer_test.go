package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	name string
	args []string
}

// stubTools records invocations and writes the output file each tool would produce
type stubTools struct {
	mu      sync.Mutex
	calls   []invocation
	fail    string
	noWrite string
}

func (s *stubTools) run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, invocation{name: name, args: args})
	s.mu.Unlock()

	if name == s.fail {
		return []byte("synth exploded"), errors.New("exit status 1")
	}
	if name == s.noWrite {
		return nil, nil
	}

	var out string
	switch name {
	case "fluidsynth":
		out = args[2] // -F <wav>
	case "ffmpeg":
		out = args[len(args)-1]
	}
	return nil, os.WriteFile(out, []byte("audio"), 0o644)
}

func foundAll(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

type fakeRenderMetrics struct {
	mu     sync.Mutex
	stages []string
	errs   int
}

func (f *fakeRenderMetrics) RecordRender(_ context.Context, stage string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
	if err != nil {
		f.errs++
	}
}

func newTestRenderer(t *testing.T, tools *stubTools, recorder MetricsRecorder) *Renderer {
	t.Helper()
	dir := t.TempDir()
	soundfont := filepath.Join(dir, "test.sf2")
	require.NoError(t, os.WriteFile(soundfont, []byte("sf2"), 0o644))

	r := NewRenderer(Options{
		SoundFontPath: soundfont,
		TempDir:       filepath.Join(dir, "temp"),
	}, recorder)
	return r.WithRunner(tools.run, foundAll)
}

func TestRenderMIDI(t *testing.T) {
	r := newTestRenderer(t, &stubTools{}, nil)

	path, err := r.RenderMIDI(context.Background(), testComposition(), t.TempDir())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Equal(t, ".mid", filepath.Ext(path))
}

func TestRenderAudio(t *testing.T) {
	tools := &stubTools{}
	recorder := &fakeRenderMetrics{}
	r := newTestRenderer(t, tools, recorder)

	dir, err := r.NewWorkDir()
	require.NoError(t, err)

	artifact, err := r.RenderAudio(context.Background(), testComposition(), dir)
	require.NoError(t, err)

	assert.FileExists(t, artifact.MIDIPath)
	assert.FileExists(t, artifact.WAVPath)
	assert.FileExists(t, artifact.MP3Path)
	assert.Equal(t, dir, artifact.Dir)

	require.Len(t, tools.calls, 2)
	assert.Equal(t, "fluidsynth", tools.calls[0].name)
	assert.Equal(t, []string{
		"-ni", "-F", artifact.WAVPath, "-r", "22050",
		"-o", "synth.reverb.active=no", "-o", "synth.chorus.active=no",
		"-g", "1.0", r.opts.SoundFontPath, artifact.MIDIPath,
	}, tools.calls[0].args)

	assert.Equal(t, "ffmpeg", tools.calls[1].name)
	assert.Equal(t, []string{
		"-y", "-loglevel", "error", "-i", artifact.WAVPath,
		"-codec:a", "libmp3lame", "-b:a", "192k", "-q:a", "2", artifact.MP3Path,
	}, tools.calls[1].args)

	assert.Equal(t, []string{"midi", "wav", "mp3"}, recorder.stages)
	assert.Zero(t, recorder.errs)
}

func TestRenderAudio_ToolFailure(t *testing.T) {
	tools := &stubTools{fail: "fluidsynth"}
	recorder := &fakeRenderMetrics{}
	r := newTestRenderer(t, tools, recorder)

	_, err := r.RenderAudio(context.Background(), testComposition(), t.TempDir())
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "fluidsynth", toolErr.Tool)
	assert.Equal(t, "synth exploded", toolErr.Output)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Len(t, tools.calls, 1)
	assert.Equal(t, 1, recorder.errs)
}

func TestRenderAudio_MissingOutput(t *testing.T) {
	r := newTestRenderer(t, &stubTools{noWrite: "ffmpeg"}, nil)

	_, err := r.RenderAudio(context.Background(), testComposition(), t.TempDir())

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "ffmpeg", toolErr.Tool)
}

func TestCheck(t *testing.T) {
	missing := func(name string) (string, error) {
		if name == "ffmpeg" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + name, nil
	}

	t.Run("ready", func(t *testing.T) {
		r := newTestRenderer(t, &stubTools{}, nil)
		assert.NoError(t, r.Check())
	})

	t.Run("missing binary", func(t *testing.T) {
		r := newTestRenderer(t, &stubTools{}, nil)
		r = r.WithRunner(r.run, missing)

		err := r.Check()
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Contains(t, err.Error(), "ffmpeg")
	})

	t.Run("missing soundfont", func(t *testing.T) {
		r := NewRenderer(Options{SoundFontPath: filepath.Join(t.TempDir(), "nope.sf2")}, nil).
			WithRunner((&stubTools{}).run, foundAll)

		assert.ErrorIs(t, r.Check(), ErrConfiguration)
	})

	t.Run("render audio fails fast", func(t *testing.T) {
		tools := &stubTools{}
		r := newTestRenderer(t, tools, nil)
		r = r.WithRunner(tools.run, missing)

		_, err := r.RenderAudio(context.Background(), testComposition(), t.TempDir())
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Empty(t, tools.calls)
	})
}

func TestNewWorkDir(t *testing.T) {
	r := newTestRenderer(t, &stubTools{}, nil)

	a, err := r.NewWorkDir()
	require.NoError(t, err)
	b, err := r.NewWorkDir()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.Equal(t, r.opts.TempDir, filepath.Dir(a))
}

func TestToolError(t *testing.T) {
	err := &ToolError{Tool: "ffmpeg", Output: "bad codec", Err: errors.New("exit status 1")}
	assert.Equal(t, "ffmpeg failed: exit status 1: bad codec", err.Error())
	assert.Equal(t, "ffmpeg failed: exit status 1", (&ToolError{Tool: "ffmpeg", Err: errors.New("exit status 1")}).Error())
}
