// Package compose draws laid-out caption lines onto a new canvas that
// holds the source image and a caption band.
package compose

import (
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/matzehuels/captioner/pkg/caption/layout"
	"github.com/matzehuels/captioner/pkg/errors"
)

const (
	// DefaultMargin is the padding around caption text, in pixels.
	DefaultMargin = 10
	// DefaultAttributionHeight is the height of the author band.
	DefaultAttributionHeight = 50
)

// Placement decides on which side of the image the caption band goes.
type Placement int

const (
	// PlacementAbove puts the band on top and the image below it.
	PlacementAbove Placement = iota
	// PlacementBelow keeps the image at the top and appends the band.
	PlacementBelow
)

func (p Placement) String() string {
	if p == PlacementBelow {
		return "below"
	}
	return "above"
}

// ParsePlacement parses "above" or "below" (case-insensitive).
func ParsePlacement(s string) (Placement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above", "top":
		return PlacementAbove, nil
	case "below", "bottom":
		return PlacementBelow, nil
	}
	return PlacementAbove, errors.New(errors.ErrCodeInvalidOption, "unknown placement %q", s)
}

// Palette holds the band colours for both modes.
type Palette struct {
	Background     color.Color
	Text           color.Color
	DarkBackground color.Color
	DarkText       color.Color
}

// DefaultPalette is black on white, flipped to white on black in dark mode.
func DefaultPalette() Palette {
	return Palette{
		Background:     color.White,
		Text:           color.Black,
		DarkBackground: color.Black,
		DarkText:       color.White,
	}
}

// Colors returns the background and text colour for the mode.
func (p Palette) Colors(dark bool) (bg, fg color.Color) {
	if dark {
		return p.DarkBackground, p.DarkText
	}
	return p.Background, p.Text
}

// Options controls how a caption is drawn.
type Options struct {
	Center    bool
	Dark      bool
	TagAuthor bool
	Author    string
	Placement Placement
	Palette   Palette

	Margin            int
	AttributionHeight int
}

// Typesetter measures and draws text at a fixed size.
type Typesetter interface {
	layout.Measurer
	Ascent() int
	Face() font.Face
}

// Compose returns a new canvas containing img and the caption lines.
//
// The canvas is as wide as img and as tall as img plus the caption band
// plus, when TagAuthor is set, the attribution band. img is not modified.
func Compose(img image.Image, lay layout.Result, ts Typesetter, opts Options) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	band := lay.WhitespaceHeight
	attribution := 0
	if opts.TagAuthor {
		attribution = opts.AttributionHeight
	}

	bandTop, imageTop := 0, band
	if opts.Placement == PlacementBelow {
		bandTop, imageTop = h, 0
	}

	bg, fg := opts.Palette.Colors(opts.Dark)
	base := imaging.New(w, h+band+attribution, bg)
	base = imaging.Paste(base, img, image.Pt(0, imageTop))

	dc := gg.NewContextForImage(base)
	dc.SetFontFace(ts.Face())
	dc.SetColor(fg)

	ascent := float64(ts.Ascent())
	for i, line := range lay.Lines {
		if line == "" {
			continue
		}
		x := float64(opts.Margin)
		if opts.Center {
			x = float64(w-ts.Width(line)) / 2
		}
		top := bandTop + opts.Margin + i*lay.LineHeight
		dc.DrawString(line, x, float64(top)+ascent)
	}

	if opts.TagAuthor && opts.Author != "" {
		top := h + band + opts.Margin
		dc.DrawString(opts.Author, float64(opts.Margin), float64(top)+ascent)
	}

	return dc.Image().(*image.RGBA)
}

// BandRect is the caption band's rectangle on a canvas produced by Compose
// for an image of height h.
func BandRect(w, h int, lay layout.Result, p Placement) image.Rectangle {
	if p == PlacementBelow {
		return image.Rect(0, h, w, h+lay.WhitespaceHeight)
	}
	return image.Rect(0, 0, w, lay.WhitespaceHeight)
}
