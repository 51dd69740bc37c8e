// Package caption adds a title band to still images and animations.
//
// The engine is the composition of four stages:
//
//   - [canvas]: upscale small inputs and pick a font size from the width
//   - [layout]: break the title into lines with a profile's policy
//   - [compose]: draw the band and the lines onto a new canvas
//   - [animate]: run the above per frame, keeping frame timing
//
// An [Engine] holds only the parsed font, which is read-only, so one engine
// can serve concurrent callers. Every call builds its own font metrics.
//
// # Usage
//
//	engine := caption.NewEngine(fonts.Default())
//	res, err := engine.Caption(img, caption.Request{
//	    Title:   "Cute Cat [1920x1080]",
//	    Profile: caption.ProfileBoot,
//	    Flags:   caption.Flags{Center: true},
//	})
package caption

import (
	"context"
	"image"

	"github.com/matzehuels/captioner/pkg/caption/animate"
	"github.com/matzehuels/captioner/pkg/caption/canvas"
	"github.com/matzehuels/captioner/pkg/caption/compose"
	"github.com/matzehuels/captioner/pkg/caption/layout"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/fonts"
)

// Request describes one caption job. It is passed by value and never
// modified by the engine.
type Request struct {
	Title    string
	Profile  Profile
	Flags    Flags
	Author   string
	Settings Settings // zero fields take DefaultSettings values
}

// Result is a captioned still image.
type Result struct {
	Image    *image.RGBA
	Upscaled bool
	FontSize int
	Layout   layout.Result
}

// Engine captions images with one font.
type Engine struct {
	fonts *fonts.Source
}

// NewEngine returns an engine drawing with src. A nil src selects the
// built-in font.
func NewEngine(src *fonts.Source) *Engine {
	if src == nil {
		src = fonts.Default()
	}
	return &Engine{fonts: src}
}

// Fonts returns the engine's font source.
func (e *Engine) Fonts() *fonts.Source { return e.fonts }

// Caption adds req's title to img.
func (e *Engine) Caption(img image.Image, req Request) (Result, error) {
	settings, err := req.validate()
	if err != nil {
		return Result{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "image is empty")
	}

	norm := canvas.Prepare(img, settings.MinSize)
	width := norm.Image.Bounds().Dx()
	size, metrics, lay := e.layout(width, req, settings)

	out := compose.Compose(norm.Image, lay, metrics, compose.Options{
		Center:            req.Flags.Center,
		Dark:              req.Flags.Dark,
		TagAuthor:         req.Flags.TagAuthor,
		Author:            req.Author,
		Placement:         req.Profile.Placement,
		Palette:           settings.Palette,
		Margin:            settings.Margin,
		AttributionHeight: settings.AttributionHeight,
	})

	return Result{
		Image:    out,
		Upscaled: norm.Upscaled,
		FontSize: size,
		Layout:   lay,
	}, nil
}

// Plan is the geometry a caption would have, computed without drawing.
type Plan struct {
	Width    int // canvas width after upscaling
	Height   int // total output height including the bands
	Upscaled bool
	FontSize int
	Layout   layout.Result
}

// Plan lays out req's title for a w×h image without rendering it.
func (e *Engine) Plan(w, h int, req Request) (Plan, error) {
	settings, err := req.validate()
	if err != nil {
		return Plan{}, err
	}
	if w <= 0 || h <= 0 {
		return Plan{}, errors.New(errors.ErrCodeInvalidInput, "image is empty")
	}
	sw, sh := canvas.ScaledSize(w, h, settings.MinSize)
	size, _, lay := e.layout(sw, req, settings)
	total := sh + lay.WhitespaceHeight
	if req.Flags.TagAuthor {
		total += settings.AttributionHeight
	}
	return Plan{
		Width:    sw,
		Height:   total,
		Upscaled: canvas.NeedsUpscale(w, h, settings.MinSize),
		FontSize: size,
		Layout:   lay,
	}, nil
}

func (e *Engine) layout(width int, req Request, settings Settings) (int, *fonts.Metrics, layout.Result) {
	size := canvas.FontSize(width, req.Profile.FontScaleFactor)
	metrics := e.fonts.Metrics(size)
	title := layout.StripResolution(req.Title)
	return size, metrics, layout.Compute(title, width, metrics, req.Profile.Policy, settings.Margin)
}

// CaptionAnimation captions every frame of src with the same request.
func (e *Engine) CaptionAnimation(src animate.Source, req Request) (animate.Sequence, error) {
	return e.CaptionAnimationContext(context.Background(), src, req)
}

// CaptionAnimationContext is CaptionAnimation with cancellation between frames.
func (e *Engine) CaptionAnimationContext(ctx context.Context, src animate.Source, req Request) (animate.Sequence, error) {
	if _, err := req.validate(); err != nil {
		return animate.Sequence{}, err
	}
	return animate.RunContext(ctx, src, func(_ int, frame image.Image) (image.Image, error) {
		res, err := e.Caption(frame, req)
		if err != nil {
			return nil, err
		}
		return res.Image, nil
	})
}

func (r Request) validate() (Settings, error) {
	if err := r.Profile.Validate(); err != nil {
		return Settings{}, err
	}
	s := r.Settings.WithDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
