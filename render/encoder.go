package render

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
)

// Level is the error-correction tier a symbol is encoded at.
type Level int

const (
	LevelLow      Level = iota // ~7% recovery
	LevelMedium                // ~15% recovery
	LevelQuartile              // ~25% recovery
	LevelHigh                  // ~30% recovery
)

// String returns the conventional single-letter name of the level.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "L"
	case LevelMedium:
		return "M"
	case LevelQuartile:
		return "Q"
	case LevelHigh:
		return "H"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// LevelFor picks the correction level for a symbol. A logo hides modules in
// the middle of the code, so it needs the highest redundancy; without one the
// lowest level keeps the symbol small.
func LevelFor(hasLogo bool) Level {
	if hasLogo {
		return LevelHigh
	}
	return LevelLow
}

// recoveryLevel maps a Level onto go-qrcode's names, which are shifted by one
// (go-qrcode calls the 25% tier "High" and the 30% tier "Highest").
func recoveryLevel(l Level) (qrcode.RecoveryLevel, error) {
	switch l {
	case LevelLow:
		return qrcode.Low, nil
	case LevelMedium:
		return qrcode.Medium, nil
	case LevelQuartile:
		return qrcode.High, nil
	case LevelHigh:
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("unknown correction level %d", int(l))
}

// Encoder turns text into a finished size×size QR bitmap.
type Encoder interface {
	Encode(ctx context.Context, text string, size int, level Level) (image.Image, error)
}

// SkipEncoder is the go-qrcode backed Encoder.
type SkipEncoder struct {
	Dark  color.Color
	Light color.Color
}

// NewSkipEncoder returns an encoder painting dark modules in dark and light
// modules in light. Nil colors fall back to black and white.
func NewSkipEncoder(dark, light color.Color) *SkipEncoder {
	if dark == nil {
		dark = color.Black
	}
	if light == nil {
		light = color.White
	}
	return &SkipEncoder{Dark: dark, Light: light}
}

// Encode builds the symbol and rasterizes it. go-qrcode silently grows the
// image when size is smaller than the symbol, so that case is reported as an
// error to keep the output exactly size×size.
func (e *SkipEncoder) Encode(ctx context.Context, text string, size int, level Level) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rl, err := recoveryLevel(level)
	if err != nil {
		return nil, err
	}

	q, err := qrcode.New(text, rl)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	q.ForegroundColor = e.Dark
	q.BackgroundColor = e.Light

	if modules := len(q.Bitmap()); size < modules {
		return nil, fmt.Errorf("size %d is smaller than the %d-module symbol", size, modules)
	}

	return q.Image(size), nil
}
