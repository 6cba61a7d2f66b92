package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, mutate ...func(*Options)) *Pipeline {
	t.Helper()
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return fixedTime }
	for _, m := range mutate {
		m(&opts)
	}
	return NewPipeline(NewSkipEncoder(nil, nil), opts, nil)
}

func solidSquare(side int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestGenerate_NoLogo(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Generate(context.Background(), Request{Text: "https://example.com", Size: 256})
	require.NoError(t, err)

	img := decodePNG(t, res.PNG)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
	assert.Equal(t, LevelLow, res.Level)
	assert.Equal(t, 256, res.Size)
	assert.Regexp(t, regexp.MustCompile(`^qrcode-\d+\.png$`), res.Filename)
	assert.Equal(t, "qrcode-1792065600000.png", res.Filename)

	text, err := Scan(img)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", text)
}

func TestGenerate_EveryAllowedSize(t *testing.T) {
	p := newTestPipeline(t)
	for _, size := range p.AllowedSizes() {
		res, err := p.Generate(context.Background(), Request{Text: "size check", Size: size})
		require.NoError(t, err, "size %d", size)
		img := decodePNG(t, res.PNG)
		assert.Equal(t, size, img.Bounds().Dx())
		assert.Equal(t, size, img.Bounds().Dy())
	}
}

func TestGenerate_WithLogo(t *testing.T) {
	p := newTestPipeline(t)
	red := color.RGBA{R: 255, A: 255}

	res, err := p.Generate(context.Background(), Request{
		Text: "hello",
		Size: 128,
		Logo: solidSquare(64, red),
	})
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, res.Level)

	img := decodePNG(t, res.PNG)
	require.Equal(t, image.Rect(0, 0, 128, 128), img.Bounds())

	logo, plate := Footprint(128, p.opts.Composite)
	assert.Equal(t, image.Rect(51, 51, 77, 77), logo)
	assert.Equal(t, image.Rect(43, 43, 85, 85), plate)

	r, g, b := rgb8(img.At(64, 64))
	assert.Greater(t, r, uint8(200))
	assert.Less(t, g, uint8(50))
	assert.Less(t, b, uint8(50))

	// Plate corners sit outside the shadow and stay white.
	for _, pt := range []image.Point{{44, 44}, {83, 44}, {44, 84}, {84, 84}} {
		r, g, b := rgb8(img.At(pt.X, pt.Y))
		assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b}, "pixel %v", pt)
	}
}

func TestGenerate_LogoStaysScannable(t *testing.T) {
	p := newTestPipeline(t)
	const text = "https://example.com/qrcraft"

	res, err := p.Generate(context.Background(), Request{
		Text: text,
		Size: 512,
		Logo: solidSquare(64, color.RGBA{R: 255, A: 255}),
	})
	require.NoError(t, err)

	got, err := Scan(decodePNG(t, res.PNG))
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestGenerate_VerifyScan(t *testing.T) {
	p := newTestPipeline(t, func(o *Options) { o.VerifyScan = true })

	_, err := p.Generate(context.Background(), Request{
		Text: "https://example.com/verified",
		Size: 512,
		Logo: solidSquare(32, color.RGBA{B: 255, A: 255}),
	})
	assert.NoError(t, err)
}

func TestGenerate_TrimsText(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Generate(context.Background(), Request{Text: "  padded\n", Size: 256})
	require.NoError(t, err)

	got, err := Scan(decodePNG(t, res.PNG))
	require.NoError(t, err)
	assert.Equal(t, "padded", got)
}

func TestGenerate_EmptyInput(t *testing.T) {
	enc := &countingEncoder{}
	p := NewPipeline(enc, DefaultOptions(), nil)

	for _, text := range []string{"", "   ", "\t\n "} {
		res, err := p.Generate(context.Background(), Request{Text: text, Size: 256})
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Nil(t, res)
	}
	assert.Zero(t, enc.calls, "no encoding work for empty input")
}

func TestGenerate_InvalidSize(t *testing.T) {
	enc := &countingEncoder{}
	p := NewPipeline(enc, DefaultOptions(), nil)

	_, err := p.Generate(context.Background(), Request{Text: "hello", Size: 300})
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.Zero(t, enc.calls)
}

func TestGenerate_Deterministic(t *testing.T) {
	p := newTestPipeline(t)
	req := Request{Text: "same every time", Size: 256, Logo: solidSquare(40, color.RGBA{G: 128, A: 255})}

	first, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.PNG, second.PNG)
	assert.Equal(t, first.Filename, second.Filename)
}

func TestGenerate_LogoNotMutated(t *testing.T) {
	p := newTestPipeline(t)
	logo := solidSquare(16, color.RGBA{R: 10, G: 20, B: 30, A: 255}).(*image.RGBA)
	before := bytes.Clone(logo.Pix)

	_, err := p.Generate(context.Background(), Request{Text: "x", Size: 128, Logo: logo})
	require.NoError(t, err)
	assert.Equal(t, before, logo.Pix)
}

func TestGenerate_EncoderFailure(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(failingEncoder{err: boom}, DefaultOptions(), nil)

	res, err := p.Generate(context.Background(), Request{Text: "hello", Size: 256})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)
}

func TestGenerate_WrongSizedBitmap(t *testing.T) {
	p := NewPipeline(fixedImageEncoder{img: solidSquare(100, color.White)}, DefaultOptions(), nil)

	_, err := p.Generate(context.Background(), Request{Text: "hello", Size: 256})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerate_TextTooLong(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Generate(context.Background(), Request{Text: strings.Repeat("a", 5000), Size: 1024})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerate_SizeSmallerThanSymbol(t *testing.T) {
	p := newTestPipeline(t, func(o *Options) { o.AllowedSizes = []int{16} })

	_, err := p.Generate(context.Background(), Request{Text: "hello", Size: 16})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerate_CancelledContext(t *testing.T) {
	p := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{Text: "hello", Size: 256})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelHigh, LevelFor(true))
	assert.Equal(t, LevelLow, LevelFor(false))
	assert.Equal(t, "H", LevelHigh.String())
	assert.Equal(t, "L", LevelLow.String())
}

func TestSkipEncoder_Colors(t *testing.T) {
	navy := color.RGBA{B: 128, A: 255}
	cream := color.RGBA{R: 250, G: 245, B: 230, A: 255}
	img, err := NewSkipEncoder(navy, cream).Encode(context.Background(), "colors", 256, LevelLow)
	require.NoError(t, err)

	// Corner is quiet zone, the finder pattern starts a few modules in.
	r, g, b := rgb8(img.At(0, 0))
	assert.Equal(t, [3]uint8{250, 245, 230}, [3]uint8{r, g, b})

	seenDark := false
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !seenDark; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if r, g, b := rgb8(img.At(x, y)); r == 0 && g == 0 && b == 128 {
				seenDark = true
				break
			}
		}
	}
	assert.True(t, seenDark)
}

func TestComposite_LeavesBaseUntouched(t *testing.T) {
	base := solidSquare(128, color.Black).(*image.RGBA)
	before := bytes.Clone(base.Pix)

	out := Composite(base, solidSquare(8, color.RGBA{R: 255, A: 255}), CompositeOptions{Fraction: 0.2, Padding: 5})

	assert.Equal(t, before, base.Pix)
	assert.Equal(t, base.Bounds(), out.Bounds())
	r, g, b := rgb8(out.At(47, 47))
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
}

type countingEncoder struct{ calls int }

func (e *countingEncoder) Encode(ctx context.Context, text string, size int, level Level) (image.Image, error) {
	e.calls++
	return solidSquare(size, color.White), nil
}

type failingEncoder struct{ err error }

func (e failingEncoder) Encode(context.Context, string, int, Level) (image.Image, error) {
	return nil, e.err
}

type fixedImageEncoder struct{ img image.Image }

func (e fixedImageEncoder) Encode(context.Context, string, int, Level) (image.Image, error) {
	return e.img, nil
}
