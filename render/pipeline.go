// Package render turns text and an optional logo into a downloadable QR PNG.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"slices"
	"strings"
	"time"
)

var (
	// ErrEmptyInput is returned when the text is empty after trimming.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidSize is returned for a size outside the allowed set.
	ErrInvalidSize = errors.New("invalid size")
	// ErrGenerationFailed wraps every failure after validation.
	ErrGenerationFailed = errors.New("generation failed")
)

// Request is a single generation attempt.
type Request struct {
	Text string
	Size int
	Logo image.Image // optional
}

// Result is a generated QR code ready for download.
type Result struct {
	PNG      []byte
	Filename string
	Level    Level
	Size     int
}

// Options configures a Pipeline.
type Options struct {
	AllowedSizes []int
	Composite    CompositeOptions
	// VerifyScan decodes every finished image and fails the generation when
	// it does not read back as the requested text.
	VerifyScan bool
	Clock      func() time.Time
}

// DefaultOptions mirrors the front-end defaults.
func DefaultOptions() Options {
	return Options{
		AllowedSizes: []int{128, 256, 512, 1024},
		Composite: CompositeOptions{
			Fraction: 0.2,
			Padding:  8,
			Shadow:   true,
		},
		Clock: time.Now,
	}
}

// Pipeline validates requests, encodes, composites and serializes them.
type Pipeline struct {
	enc  Encoder
	opts Options
	log  *slog.Logger
}

// NewPipeline creates a Pipeline. A nil Clock defaults to time.Now.
func NewPipeline(enc Encoder, opts Options, log *slog.Logger) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{enc: enc, opts: opts, log: log}
}

// AllowedSizes returns a copy of the sizes this pipeline accepts.
func (p *Pipeline) AllowedSizes() []int {
	return slices.Clone(p.opts.AllowedSizes)
}

// Generate runs one request to completion. Validation errors are returned
// before any encoding work; later failures wrap ErrGenerationFailed.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if !slices.Contains(p.opts.AllowedSizes, req.Size) {
		return nil, fmt.Errorf("%w: %d not in %v", ErrInvalidSize, req.Size, p.opts.AllowedSizes)
	}

	level := LevelFor(req.Logo != nil)

	img, err := p.enc.Encode(ctx, text, req.Size, level)
	if err != nil {
		return nil, p.fail("encode", err)
	}
	if b := img.Bounds(); b.Dx() != req.Size || b.Dy() != req.Size {
		return nil, p.fail("encode", fmt.Errorf("encoder returned %dx%d, want %dx%d", b.Dx(), b.Dy(), req.Size, req.Size))
	}

	if req.Logo != nil {
		img = Composite(img, req.Logo, p.opts.Composite)
	}

	if p.opts.VerifyScan {
		got, err := Scan(img)
		if err != nil {
			return nil, p.fail("verify", err)
		}
		if got != text {
			return nil, p.fail("verify", fmt.Errorf("scanned %q, want %q", got, text))
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, p.fail("png", err)
	}

	res := &Result{
		PNG:      buf.Bytes(),
		Filename: FilenameAt(p.opts.Clock()),
		Level:    level,
		Size:     req.Size,
	}
	p.log.Debug("qr generated", "size", res.Size, "level", res.Level.String(), "logo", req.Logo != nil, "bytes", len(res.PNG))
	return res, nil
}

func (p *Pipeline) fail(step string, err error) error {
	p.log.Warn("qr generation failed", "step", step, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrGenerationFailed, step, err)
}

// FilenameAt returns the download name for a result produced at t.
func FilenameAt(t time.Time) string {
	return fmt.Sprintf("qrcode-%d.png", t.UnixMilli())
}
