package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
)

const (
	stageMIDI = "midi"
	stageWAV  = "wav"
	stageMP3  = "mp3"

	midiFileName = "composition.mid"
	wavFileName  = "composition.wav"
	mp3FileName  = "composition.mp3"

	maxToolOutput = 2000
)

// CommandRunner runs an external tool and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// MetricsRecorder interface for recording render metrics
type MetricsRecorder interface {
	RecordRender(ctx context.Context, stage string, duration time.Duration, err error)
}

// Options configures a Renderer
type Options struct {
	SoundFontPath  string
	TempDir        string
	FluidSynthPath string
	FFmpegPath     string
	SampleRate     int
	MP3Bitrate     string
}

// Artifact is the set of files produced for one composition.
type Artifact struct {
	Dir      string
	MIDIPath string
	WAVPath  string
	MP3Path  string
}

// Renderer turns compositions into MIDI, WAV and MP3 files.
// It is immutable after construction and safe for concurrent use.
type Renderer struct {
	opts     Options
	run      CommandRunner
	lookPath func(string) (string, error)
	metrics  MetricsRecorder
}

// NewRenderer creates a renderer that shells out to fluidsynth and ffmpeg.
func NewRenderer(opts Options, recorder MetricsRecorder) *Renderer {
	if opts.FluidSynthPath == "" {
		opts.FluidSynthPath = "fluidsynth"
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 22050
	}
	if opts.MP3Bitrate == "" {
		opts.MP3Bitrate = "192k"
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	return &Renderer{
		opts:     opts,
		run:      execCommand,
		lookPath: exec.LookPath,
		metrics:  recorder,
	}
}

// WithRunner returns a copy of r that invokes tools through run and
// resolves binaries with lookPath.
func (r *Renderer) WithRunner(run CommandRunner, lookPath func(string) (string, error)) *Renderer {
	clone := *r
	clone.run = run
	clone.lookPath = lookPath
	return &clone
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Check verifies that audio rendering can run. MIDI output needs none of this.
func (r *Renderer) Check() error {
	if _, err := r.lookPath(r.opts.FluidSynthPath); err != nil {
		return fmt.Errorf("%w: fluidsynth not found (%s): %v", ErrConfiguration, r.opts.FluidSynthPath, err)
	}
	if _, err := r.lookPath(r.opts.FFmpegPath); err != nil {
		return fmt.Errorf("%w: ffmpeg not found (%s): %v", ErrConfiguration, r.opts.FFmpegPath, err)
	}
	info, err := os.Stat(r.opts.SoundFontPath)
	if err != nil {
		return fmt.Errorf("%w: soundfont not found at %s", ErrConfiguration, r.opts.SoundFontPath)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: soundfont path %s is a directory", ErrConfiguration, r.opts.SoundFontPath)
	}
	return nil
}

// NewWorkDir creates a per-request directory under the configured temp dir.
// The caller removes it.
func (r *Renderer) NewWorkDir() (string, error) {
	if err := os.MkdirAll(r.opts.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	dir, err := os.MkdirTemp(r.opts.TempDir, "render-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return dir, nil
}

// WriteMIDI encodes comp to w.
func (r *Renderer) WriteMIDI(comp *models.Composition, w io.Writer) error {
	return WriteMIDI(comp, w)
}

// RenderMIDI writes comp to a .mid file in dir and returns its path.
func (r *Renderer) RenderMIDI(ctx context.Context, comp *models.Composition, dir string) (path string, err error) {
	start := time.Now()
	defer func() { r.record(ctx, stageMIDI, start, err) }()

	path = filepath.Join(dir, midiFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create midi file: %w", err)
	}
	defer f.Close()

	if err := WriteMIDI(comp, f); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close midi file: %w", err)
	}

	log.Printf("🎹 MIDI WRITTEN: %s (%d tracks)", path, len(comp.Tracks))
	return path, nil
}

// RenderAudio writes MIDI, synthesizes it to WAV and encodes MP3, all in dir.
func (r *Renderer) RenderAudio(ctx context.Context, comp *models.Composition, dir string) (*Artifact, error) {
	if err := r.Check(); err != nil {
		return nil, err
	}

	midiPath, err := r.RenderMIDI(ctx, comp, dir)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Dir:      dir,
		MIDIPath: midiPath,
		WAVPath:  filepath.Join(dir, wavFileName),
		MP3Path:  filepath.Join(dir, mp3FileName),
	}

	if err := r.tool(ctx, stageWAV, r.opts.FluidSynthPath, artifact.WAVPath, r.fluidSynthArgs(midiPath, artifact.WAVPath)); err != nil {
		return nil, err
	}
	if err := r.tool(ctx, stageMP3, r.opts.FFmpegPath, artifact.MP3Path, r.ffmpegArgs(artifact.WAVPath, artifact.MP3Path)); err != nil {
		return nil, err
	}

	log.Printf("🎧 AUDIO RENDERED: %s", artifact.MP3Path)
	return artifact, nil
}

func (r *Renderer) fluidSynthArgs(midiPath, wavPath string) []string {
	return []string{
		"-ni",
		"-F", wavPath,
		"-r", fmt.Sprintf("%d", r.opts.SampleRate),
		"-o", "synth.reverb.active=no",
		"-o", "synth.chorus.active=no",
		"-g", "1.0",
		r.opts.SoundFontPath,
		midiPath,
	}
}

func (r *Renderer) ffmpegArgs(wavPath, mp3Path string) []string {
	return []string{
		"-y",
		"-loglevel", "error",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", r.opts.MP3Bitrate,
		"-q:a", "2",
		mp3Path,
	}
}

// tool runs one external stage and checks that it produced a non-empty file.
func (r *Renderer) tool(ctx context.Context, stage, binary, outPath string, args []string) (err error) {
	start := time.Now()
	defer func() { r.record(ctx, stage, start, err) }()

	output, runErr := r.run(ctx, binary, args...)
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s cancelled: %w", filepath.Base(binary), ctxErr)
		}
		return &ToolError{Tool: filepath.Base(binary), Output: trimOutput(output), Err: runErr}
	}

	info, statErr := os.Stat(outPath)
	switch {
	case statErr != nil:
		return &ToolError{Tool: filepath.Base(binary), Output: trimOutput(output), Err: fmt.Errorf("no output file: %w", statErr)}
	case info.Size() == 0:
		return &ToolError{Tool: filepath.Base(binary), Output: trimOutput(output), Err: fmt.Errorf("empty output file %s", outPath)}
	}
	return nil
}

func (r *Renderer) record(ctx context.Context, stage string, start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.RecordRender(ctx, stage, time.Since(start), err)
	}
}

func trimOutput(output []byte) string {
	s := string(bytes.TrimSpace(output))
	if len(s) > maxToolOutput {
		s = s[:maxToolOutput] + "..."
	}
	return strings.ToValidUTF8(s, "")
}
