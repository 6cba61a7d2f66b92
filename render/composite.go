package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// Drop shadow under the logo. The shadow reaches at most shadowBlur+shadowOffsetY
// pixels past the footprint, which stays inside the default plate padding.
const (
	shadowBlur    = 4
	shadowOffsetY = 2
	shadowAlpha   = 0.1
)

// CompositeOptions describes the logo overlay.
type CompositeOptions struct {
	// Fraction of the image side the logo footprint covers.
	Fraction float64
	// Padding of the white backing plate around the footprint, in pixels.
	Padding int
	Shadow  bool
}

// Footprint returns the square the logo is drawn into for an image of the
// given side length, and the backing plate around it.
func Footprint(size int, opts CompositeOptions) (logo, plate image.Rectangle) {
	side := int(math.Round(float64(size) * opts.Fraction))
	x := (size - side) / 2
	y := (size - side) / 2
	logo = image.Rect(x, y, x+side, y+side)
	plate = logo.Inset(-opts.Padding).Intersect(image.Rect(0, 0, size, size))
	return logo, plate
}

// Composite draws logo centered over base on a white plate and returns the
// result as a new image. base and logo are left untouched.
func Composite(base, logo image.Image, opts CompositeOptions) image.Image {
	size := base.Bounds().Dx()
	footprint, plate := Footprint(size, opts)

	dc := gg.NewContextForImage(base)

	dc.SetColor(color.White)
	dc.DrawRectangle(float64(plate.Min.X), float64(plate.Min.Y), float64(plate.Dx()), float64(plate.Dy()))
	dc.Fill()

	if opts.Shadow {
		// Stacked translucent rectangles approximate a blurred edge.
		step := shadowAlpha / shadowBlur
		for i := shadowBlur; i > 0; i-- {
			r := footprint.Add(image.Pt(0, shadowOffsetY)).Inset(-i).Intersect(plate)
			dc.SetRGBA(0, 0, 0, step)
			dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
			dc.Fill()
		}
	}

	if footprint.Empty() {
		return dc.Image()
	}

	scaled := image.NewRGBA(image.Rect(0, 0, footprint.Dx(), footprint.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), logo, logo.Bounds(), xdraw.Over, nil)
	dc.DrawImage(scaled, footprint.Min.X, footprint.Min.Y)

	return dc.Image()
}
