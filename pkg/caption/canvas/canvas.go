// Package canvas normalises source images before a caption is laid out.
//
// Small images are upscaled so that their shorter side reaches a minimum
// size; the font size is then derived from the normalised width, which
// keeps caption text legible on tiny thumbnails.
package canvas

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultMinSize is the shorter-side threshold below which images are upscaled.
const DefaultMinSize = 500

// Normalized is an image ready for captioning.
type Normalized struct {
	Image    image.Image
	Upscaled bool
}

// Prepare upscales img with Lanczos resampling when its shorter side is
// below minSize, so that the shorter side becomes exactly minSize and the
// aspect ratio is kept (the longer side is rounded up). Otherwise img is
// returned untouched.
func Prepare(img image.Image, minSize int) Normalized {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	short := min(w, h)
	if short <= 0 || short >= minSize {
		return Normalized{Image: img}
	}
	nw, nh := ScaledSize(w, h, minSize)
	return Normalized{
		Image:    imaging.Resize(img, nw, nh, imaging.Lanczos),
		Upscaled: true,
	}
}

// ScaledSize returns the dimensions Prepare would resize a w×h image to.
// Sizes whose shorter side is already at least minSize are returned as is.
func ScaledSize(w, h, minSize int) (int, int) {
	short := min(w, h)
	if short <= 0 || short >= minSize {
		return w, h
	}
	return ceilDiv(w*minSize, short), ceilDiv(h*minSize, short)
}

// NeedsUpscale reports whether Prepare would resize a w×h image.
func NeedsUpscale(w, h, minSize int) bool {
	short := min(w, h)
	return short > 0 && short < minSize
}

// FontSize is the caption font pixel size for a canvas of the given width.
func FontSize(width, scaleFactor int) int {
	if scaleFactor <= 0 {
		scaleFactor = 1
	}
	return max(width/scaleFactor, 1)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
