// Package speech implements the synthesis request lifecycle: validation, speaker resolution,
// artifact naming, synthesis, upload and local cleanup.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/speaker"
)

// DefaultLanguage is used when a request leaves the language empty.
const DefaultLanguage = "en"

const dirPermissions = 0o750

// ErrTextEmpty indicates a request without text.
var ErrTextEmpty = errors.New("missing text in request body")

// Request is one synthesis call.
type Request struct {
	Text     string
	Speaker  string
	Language string
}

// Result describes a published artifact.
type Result struct {
	URL      string
	Filename string
	Speaker  string
}

// Options configures a Handler.
type Options struct {
	OutputDir       string
	DefaultLanguage string
	KeepLocalFiles  bool
}

// Handler serves synthesis requests. It holds no per-request state and is safe for concurrent use.
type Handler struct {
	resolver    *speaker.Resolver
	synthesizer core.Synthesizer
	uploader    core.Uploader
	names       *NameGenerator
	options     Options
	log         *logger.Logger
}

// NewHandler wires a handler from its collaborators.
func NewHandler(
	resolver *speaker.Resolver,
	synthesizer core.Synthesizer,
	uploader core.Uploader,
	names *NameGenerator,
	options Options,
	log *logger.Logger,
) *Handler {
	if options.DefaultLanguage == "" {
		options.DefaultLanguage = DefaultLanguage
	}

	return &Handler{
		resolver:    resolver,
		synthesizer: synthesizer,
		uploader:    uploader,
		names:       names,
		options:     options,
		log:         log,
	}
}

// SpeakerCount returns the size of the speaker catalog.
func (h *Handler) SpeakerCount() int {
	return h.resolver.Catalog().Len()
}

// Synthesize validates req, renders it in the resolved voice, uploads the artifact and
// returns its public URL. The local artifact is removed on every path unless configured otherwise.
func (h *Handler) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, ErrTextEmpty)
	}

	language := req.Language
	if language == "" {
		language = h.options.DefaultLanguage
	}

	match := h.resolver.Resolve(req.Speaker)
	h.log.Info("Resolved speaker %q to %s (distance %d, default %t)",
		req.Speaker, match.Speaker.Name, match.Distance, match.Defaulted)

	filename := h.names.Next()
	outputPath := filepath.Join(h.options.OutputDir, filename)

	mkdirErr := os.MkdirAll(h.options.OutputDir, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("%w: failed to create output directory: %w", core.ErrSynthesis, mkdirErr)
	}

	defer h.removeArtifact(outputPath)

	synthErr := h.synthesizer.Synthesize(ctx, core.SynthesisRequest{
		Text:          req.Text,
		ReferencePath: match.Speaker.Path,
		Language:      language,
		OutputPath:    outputPath,
	})
	if synthErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, synthErr)
	}

	url, uploadErr := h.uploader.Upload(ctx, outputPath)
	if uploadErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpload, uploadErr)
	}

	h.log.Info("Published %s at %s", filename, url)

	return &Result{URL: url, Filename: filename, Speaker: match.Speaker.Name}, nil
}

func (h *Handler) removeArtifact(path string) {
	if h.options.KeepLocalFiles {
		return
	}

	removeErr := os.Remove(path)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		h.log.Warn("Failed to remove local artifact '%s': %v", path, removeErr)
	}
}
