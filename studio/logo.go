package studio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrLogoDecode is returned when an uploaded file cannot be read as an image.
var ErrLogoDecode = errors.New("logo decode failed")

// Logo is a decoded logo image and the name of the file it came from.
type Logo struct {
	Name   string
	Image  image.Image
	Width  int
	Height int
}

// LogoState holds at most one active logo. Safe for concurrent use.
type LogoState struct {
	mu   sync.RWMutex
	logo *Logo
}

// Set replaces the active logo.
func (s *LogoState) Set(name string, img image.Image) Logo {
	b := img.Bounds()
	l := &Logo{Name: name, Image: img, Width: b.Dx(), Height: b.Dy()}

	s.mu.Lock()
	s.logo = l
	s.mu.Unlock()
	return *l
}

// Get returns the active logo, if any.
func (s *LogoState) Get() (Logo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logo == nil {
		return Logo{}, false
	}
	return *s.logo, true
}

// Clear drops the active logo. Clearing an empty state is a no-op.
func (s *LogoState) Clear() {
	s.mu.Lock()
	s.logo = nil
	s.mu.Unlock()
}

// DefaultMaxLogoPixels bounds the decoded size of a logo at 4096×4096.
const DefaultMaxLogoPixels = 4096 * 4096

// DecodeLogo reads at most maxBytes from r and decodes them as PNG, JPEG, GIF,
// WebP, BMP or TIFF. The header is checked first so an image declaring more
// than maxPixels pixels is rejected before its bitmap is allocated.
func DecodeLogo(r io.Reader, maxBytes, maxPixels int64) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrLogoDecode, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrLogoDecode, maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogoDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrLogoDecode, format)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d, over the %d pixel limit",
			ErrLogoDecode, format, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogoDecode, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("%w: empty %s image", ErrLogoDecode, format)
	}
	return img, nil
}
