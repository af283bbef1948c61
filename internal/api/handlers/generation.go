package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/agents/composer"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/logger"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/render"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/services"
)

const (
	formatMP3  = "mp3"
	formatMIDI = "midi"
	formatJSON = "json"

	contentTypeMP3  = "audio/mpeg"
	contentTypeMIDI = "audio/midi"

	defaultGenerationTimeout = 120 * time.Second
)

// Composer produces a length-repaired composition for a request
type Composer interface {
	Compose(ctx context.Context, req models.GenerateRequest) (*composer.Result, error)
	Provider() string
	Model() string
}

// Renderer turns a composition into MIDI or audio files
type Renderer interface {
	Check() error
	NewWorkDir() (string, error)
	WriteMIDI(comp *models.Composition, w io.Writer) error
	RenderAudio(ctx context.Context, comp *models.Composition, dir string) (*render.Artifact, error)
}

type GenerationHandler struct {
	composer Composer
	renderer Renderer
	timeout  time.Duration
}

func NewGenerationHandler(c Composer, r Renderer, timeout time.Duration) *GenerationHandler {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &GenerationHandler{
		composer: c,
		renderer: r,
		timeout:  timeout,
	}
}

// CompositionResponse is the body of a format=json generation
type CompositionResponse struct {
	Composition  *models.Composition   `json:"composition"`
	LengthReport services.LengthReport `json:"length_report"`
	Attempts     int                   `json:"attempts"`
	Timeline     []services.TimedTrack `json:"timeline"`
	Provider     string                `json:"provider"`
	Model        string                `json:"model"`
	Usage        UsageResponse         `json:"usage"`
}

type UsageResponse struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Generate handles POST /api/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", formatMP3))
	switch format {
	case formatMP3, formatMIDI, formatJSON:
	default:
		respondBadRequest(c, fmt.Errorf("invalid format %q: allowed mp3, midi, json", format))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	fields := logger.WithContext(c)
	fields["genre"] = req.Genre
	fields["mood"] = req.Mood
	fields["bars"] = req.BarsOrDefault()
	fields["format"] = format
	logger.Info("Generation request received", fields)

	result, err := h.composer.Compose(ctx, req)
	if err != nil {
		respondError(c, "Composition generation failed", err)
		return
	}

	switch format {
	case formatJSON:
		h.respondJSON(c, result)
	case formatMIDI:
		h.respondMIDI(c, req, result)
	default:
		h.respondMP3(ctx, c, req, result)
	}
}

func (h *GenerationHandler) respondJSON(c *gin.Context, result *composer.Result) {
	timeline, err := services.TimelineFor(result.Composition)
	if err != nil {
		respondError(c, "Timeline conversion failed", err)
		return
	}

	setCompositionHeaders(c, result)
	c.JSON(http.StatusOK, CompositionResponse{
		Composition:  result.Composition,
		LengthReport: result.Report,
		Attempts:     result.Attempts,
		Timeline:     timeline,
		Provider:     h.composer.Provider(),
		Model:        h.composer.Model(),
		Usage: UsageResponse{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
			TotalTokens:  result.Usage.TotalTokens,
		},
	})
}

func (h *GenerationHandler) respondMIDI(c *gin.Context, req models.GenerateRequest, result *composer.Result) {
	var buf bytes.Buffer
	if err := h.renderer.WriteMIDI(result.Composition, &buf); err != nil {
		respondError(c, "MIDI rendering failed", err)
		return
	}

	setCompositionHeaders(c, result)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, outputFileName(req, "mid")))
	c.Data(http.StatusOK, contentTypeMIDI, buf.Bytes())
}

func (h *GenerationHandler) respondMP3(ctx context.Context, c *gin.Context, req models.GenerateRequest, result *composer.Result) {
	dir, err := h.renderer.NewWorkDir()
	if err != nil {
		respondError(c, "Could not create render directory", err)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("⚠️  Failed to remove render directory %s: %v", dir, err)
		}
	}()

	artifact, err := h.renderer.RenderAudio(ctx, result.Composition, dir)
	if err != nil {
		respondError(c, "Audio rendering failed", err)
		return
	}

	setCompositionHeaders(c, result)
	c.Header("Content-Type", contentTypeMP3)
	c.FileAttachment(artifact.MP3Path, outputFileName(req, "mp3"))
}

func setCompositionHeaders(c *gin.Context, result *composer.Result) {
	meta := result.Composition.Metadata
	c.Header("X-Tempo", strconv.Itoa(meta.Tempo))
	c.Header("X-Bars", strconv.Itoa(result.Report.Bars))
	c.Header("X-Key", meta.Key)
	c.Header("X-Scale", string(meta.Scale))
	c.Header("X-Attempts", strconv.Itoa(result.Attempts))
}

// outputFileName builds beatcanvas_{genre}_{mood}_{bars}bars.{ext}
func outputFileName(req models.GenerateRequest, ext string) string {
	return fmt.Sprintf("beatcanvas_%s_%s_%dbars.%s", slug(req.Genre), slug(req.Mood), req.BarsOrDefault(), ext)
}

// slug lowercases s and replaces anything outside [a-z0-9-] with a hyphen
func slug(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(s)))
	return strings.Trim(mapped, "-")
}
