package animate

import (
	"image"
	"image/draw"
	"image/gif"
	"io"
	"time"

	"github.com/matzehuels/captioner/pkg/errors"
)

// Source is a seekable sequence of animation frames.
//
// Seek positions the source on frame i; Frame and Duration then describe
// that frame. Seeking past the last frame returns io.EOF. Frame returns a
// full-canvas image that the caller may keep.
type Source interface {
	Len() int
	Seek(i int) error
	Frame() image.Image
	Duration() time.Duration
	Loop() int
}

// GIFSource exposes a decoded GIF as fully composited frames.
//
// GIF frames may cover only part of the logical screen and carry a disposal
// method that says what happens to their area before the next frame is
// drawn. GIFSource replays that state machine, so Frame always returns what
// a viewer would show at that index.
type GIFSource struct {
	g      *gif.GIF
	bounds image.Rectangle
	canvas *image.RGBA
	prev   *image.RGBA
	index  int
}

// NewGIFSource wraps g. g must contain at least one frame.
func NewGIFSource(g *gif.GIF) (*GIFSource, error) {
	if g == nil || len(g.Image) == 0 {
		return nil, errors.New(errors.ErrCodeDecode, "gif has no frames")
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		for _, frame := range g.Image {
			bounds = bounds.Union(frame.Bounds())
		}
	}
	s := &GIFSource{
		g:      g,
		bounds: bounds,
		canvas: image.NewRGBA(bounds),
		prev:   image.NewRGBA(bounds),
		index:  -1,
	}
	return s, nil
}

// Len is the number of frames.
func (s *GIFSource) Len() int { return len(s.g.Image) }

// Loop is the GIF loop count (0 loops forever, -1 plays once).
func (s *GIFSource) Loop() int { return s.g.LoopCount }

// Bounds is the logical screen every frame is composited onto.
func (s *GIFSource) Bounds() image.Rectangle { return s.bounds }

// Seek composites frames up to i. Seeking backwards restarts from frame 0.
func (s *GIFSource) Seek(i int) error {
	if i < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative frame index %d", i)
	}
	if i >= s.Len() {
		return io.EOF
	}
	if i < s.index {
		s.reset()
	}
	for s.index < i {
		if s.index >= 0 {
			s.dispose(s.index)
		}
		s.index++
		s.draw(s.index)
	}
	return nil
}

// Frame returns a copy of the composited canvas at the current index.
func (s *GIFSource) Frame() image.Image {
	out := image.NewRGBA(s.bounds)
	copy(out.Pix, s.canvas.Pix)
	return out
}

// Duration is the current frame's display time.
func (s *GIFSource) Duration() time.Duration {
	if s.index < 0 || s.index >= len(s.g.Delay) {
		return 0
	}
	return time.Duration(s.g.Delay[s.index]) * 10 * time.Millisecond
}

func (s *GIFSource) reset() {
	clear(s.canvas.Pix)
	clear(s.prev.Pix)
	s.index = -1
}

func (s *GIFSource) disposal(i int) byte {
	if i < len(s.g.Disposal) {
		return s.g.Disposal[i]
	}
	return gif.DisposalNone
}

func (s *GIFSource) draw(i int) {
	frame := s.g.Image[i]
	if s.disposal(i) == gif.DisposalPrevious {
		copy(s.prev.Pix, s.canvas.Pix)
	}
	draw.Draw(s.canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
}

func (s *GIFSource) dispose(i int) {
	switch s.disposal(i) {
	case gif.DisposalBackground:
		draw.Draw(s.canvas, s.g.Image[i].Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		copy(s.canvas.Pix, s.prev.Pix)
	}
}

// SliceSource serves frames that are already composited, for example from
// a previous [Run].
type SliceSource struct {
	frames []Frame
	loop   int
	index  int
}

// NewSliceSource returns a Source over frames.
func NewSliceSource(frames []Frame, loop int) *SliceSource {
	return &SliceSource{frames: frames, loop: loop, index: -1}
}

func (s *SliceSource) Len() int  { return len(s.frames) }
func (s *SliceSource) Loop() int { return s.loop }

func (s *SliceSource) Seek(i int) error {
	if i < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative frame index %d", i)
	}
	if i >= len(s.frames) {
		return io.EOF
	}
	s.index = i
	return nil
}

func (s *SliceSource) Frame() image.Image {
	if s.index < 0 {
		return nil
	}
	return s.frames[s.index].Image
}

func (s *SliceSource) Duration() time.Duration {
	if s.index < 0 {
		return 0
	}
	return s.frames[s.index].Duration
}
