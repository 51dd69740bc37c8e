// Package animate captions every frame of an animation while preserving
// its timing.
//
// Frame durations are read in a first pass over the source, before any
// frame is processed, and are re-attached by index afterwards. Each
// captioned frame is encoded to a single-frame GIF and decoded again, so
// every output frame is a standalone paletted bitmap with no reference to
// the source or to its neighbours.
//
// The driver is all-or-nothing: the first failing frame fails the whole
// run and no partial sequence is returned.
package animate

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"time"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/matzehuels/captioner/pkg/errors"
)

// Frame is one output frame.
type Frame struct {
	Image    image.Image
	Duration time.Duration
}

// Sequence is a captioned animation.
type Sequence struct {
	Frames    []Frame
	Width     int
	Height    int
	LoopCount int
}

// TotalDuration is the sum of all frame durations.
func (s Sequence) TotalDuration() time.Duration {
	var total time.Duration
	for _, f := range s.Frames {
		total += f.Duration
	}
	return total
}

// CaptionFunc transforms one source frame.
type CaptionFunc func(index int, frame image.Image) (image.Image, error)

// Durations reads every frame duration from src, in order.
func Durations(src Source) ([]time.Duration, error) {
	durations := make([]time.Duration, 0, src.Len())
	for i := 0; ; i++ {
		err := src.Seek(i)
		if err == io.EOF {
			return durations, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeAnimationFrame, err, "read duration of frame %d", i)
		}
		durations = append(durations, src.Duration())
	}
}

// Run captions every frame of src with fn.
func Run(src Source, fn CaptionFunc) (Sequence, error) {
	return RunContext(context.Background(), src, fn)
}

// RunContext is Run with cancellation checked between frames.
func RunContext(ctx context.Context, src Source, fn CaptionFunc) (Sequence, error) {
	durations, err := Durations(src)
	if err != nil {
		return Sequence{}, err
	}
	if len(durations) == 0 {
		return Sequence{}, errors.New(errors.ErrCodeAnimationFrame, "animation has no frames")
	}

	seq := Sequence{
		Frames:    make([]Frame, 0, len(durations)),
		LoopCount: src.Loop(),
	}
	var srcSize image.Point
	for i, d := range durations {
		if err := ctx.Err(); err != nil {
			return Sequence{}, err
		}
		if err := src.Seek(i); err != nil {
			return Sequence{}, errors.Wrap(errors.ErrCodeAnimationFrame, err, "seek frame %d", i)
		}
		frame := src.Frame()
		size := frame.Bounds().Size()
		if i == 0 {
			srcSize = size
		} else if size != srcSize {
			return Sequence{}, errors.New(errors.ErrCodeAnimationFrame,
				"source frame %d is %dx%d, frame 0 is %dx%d", i, size.X, size.Y, srcSize.X, srcSize.Y)
		}

		out, err := fn(i, frame)
		if err != nil {
			return Sequence{}, errors.Wrap(errors.ErrCodeAnimationFrame, err, "caption frame %d", i)
		}

		b := out.Bounds()
		if i == 0 {
			seq.Width, seq.Height = b.Dx(), b.Dy()
		} else if b.Dx() != seq.Width || b.Dy() != seq.Height {
			return Sequence{}, errors.New(errors.ErrCodeAnimationFrame,
				"frame %d is %dx%d, frame 0 is %dx%d", i, b.Dx(), b.Dy(), seq.Width, seq.Height)
		}

		standalone, err := roundTrip(out)
		if err != nil {
			return Sequence{}, errors.Wrap(errors.ErrCodeAnimationFrame, err, "re-encode frame %d", i)
		}
		seq.Frames = append(seq.Frames, Frame{Image: standalone, Duration: d})
	}
	return seq, nil
}

// EncodeGIF writes the sequence as one animated GIF. Delays are rounded to
// the nearest centisecond.
func (s Sequence) EncodeGIF(w io.Writer) error {
	if len(s.Frames) == 0 {
		return errors.New(errors.ErrCodeEncode, "no frames to encode")
	}
	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(s.Frames)),
		Delay:     make([]int, 0, len(s.Frames)),
		LoopCount: s.LoopCount,
		Config: image.Config{
			Width:  s.Width,
			Height: s.Height,
		},
	}
	for _, f := range s.Frames {
		out.Image = append(out.Image, paletted(f.Image))
		out.Delay = append(out.Delay, centiseconds(f.Duration))
	}
	out.Config.ColorModel = out.Image[0].Palette
	if err := gif.EncodeAll(w, out); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode gif")
	}
	return nil
}

// transparentPalette is appended to quantised palettes so that fully
// transparent pixels keep an exact match.
var transparentPalette = color.RGBA{}

func centiseconds(d time.Duration) int {
	return int((d + 5*time.Millisecond) / (10 * time.Millisecond))
}

// roundTrip encodes img as a single-frame GIF and decodes it again.
func roundTrip(img image.Image) (*image.Paletted, error) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, &gif.Options{NumColors: 256, Quantizer: quantize.MedianCutQuantizer{}}); err != nil {
		return nil, err
	}
	decoded, err := gif.Decode(&buf)
	if err != nil {
		return nil, err
	}
	p, ok := decoded.(*image.Paletted)
	if !ok {
		return paletted(decoded), nil
	}
	return p, nil
}

// paletted returns img as a paletted image, quantising when needed.
func paletted(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok {
		return p
	}
	b := img.Bounds()
	pal := quantize.MedianCutQuantizer{}.Quantize(make(color.Palette, 0, 256), img)
	if len(pal) < 256 {
		pal = append(pal, transparentPalette)
	}
	p := image.NewPaletted(b, pal)
	draw.FloydSteinberg.Draw(p, b, img, b.Min)
	return p
}
