package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"time"

	"github.com/matzehuels/captioner/pkg/cache"
	"github.com/matzehuels/captioner/pkg/caption/animate"
	"github.com/matzehuels/captioner/pkg/caption/canvas"
	"github.com/matzehuels/captioner/pkg/codec"
	"github.com/matzehuels/captioner/pkg/observability"
)

// decode runs the decode stage with timing and hooks.
func (r *Runner) decode(ctx context.Context, input []byte) (*codec.Decoded, time.Duration, error) {
	start := time.Now()
	d, err := codec.Decode(input)
	elapsed := time.Since(start)
	if err != nil {
		observability.Caption().OnDecode(ctx, "", 0, elapsed, err)
		return nil, elapsed, err
	}
	observability.Caption().OnDecode(ctx, d.Format, d.Frames(), elapsed, nil)
	r.Logger.Debug("decoded input", "format", d.Format, "frames", d.Frames(), "duration", elapsed)
	return d, elapsed, nil
}

// stillFrame is the image a still caption is drawn on. For GIFs that is
// frame 0 composited onto the full logical screen, not the raw sub-frame.
func stillFrame(d *codec.Decoded) (image.Image, error) {
	if d.GIF == nil {
		return d.Image, nil
	}
	src, err := animate.NewGIFSource(d.GIF)
	if err != nil {
		return nil, err
	}
	if err := src.Seek(0); err != nil {
		return nil, err
	}
	return src.Frame(), nil
}

// Inspection describes an input image without captioning it.
type Inspection struct {
	Format    string          `json:"format"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Frames    int             `json:"frames"`
	LoopCount int             `json:"loop_count,omitempty"`
	Durations []time.Duration `json:"durations,omitempty"`
	Total     time.Duration   `json:"total,omitempty"`

	// WouldUpscale reports whether captioning would upscale the input, and
	// ScaledWidth/ScaledHeight the size it would be upscaled to.
	WouldUpscale bool `json:"would_upscale"`
	ScaledWidth  int  `json:"scaled_width"`
	ScaledHeight int  `json:"scaled_height"`
}

// Inspect decodes input and reports its geometry and frame timing.
// Results are cached by input hash.
func (r *Runner) Inspect(ctx context.Context, input []byte) (*Inspection, error) {
	key := r.Keyer.InspectKey(cache.Hash(input))
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var cached Inspection
		if json.Unmarshal(data, &cached) == nil {
			observability.Cache().OnCacheHit(ctx, "inspect")
			return &cached, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "inspect")

	d, _, err := r.decode(ctx, input)
	if err != nil {
		return nil, err
	}

	ins := &Inspection{Format: d.Format, Frames: d.Frames()}
	b := d.Image.Bounds()
	ins.Width, ins.Height = b.Dx(), b.Dy()

	if d.GIF != nil {
		src, err := animate.NewGIFSource(d.GIF)
		if err != nil {
			return nil, err
		}
		sb := src.Bounds()
		ins.Width, ins.Height = sb.Dx(), sb.Dy()
		ins.LoopCount = src.Loop()
		if ins.Durations, err = animate.Durations(src); err != nil {
			return nil, err
		}
		for _, dur := range ins.Durations {
			ins.Total += dur
		}
	}

	minSize := r.Settings.WithDefaults().MinSize
	ins.WouldUpscale = canvas.NeedsUpscale(ins.Width, ins.Height, minSize)
	ins.ScaledWidth, ins.ScaledHeight = canvas.ScaledSize(ins.Width, ins.Height, minSize)

	if data, err := json.Marshal(ins); err == nil {
		if r.Cache.Set(ctx, key, data, cache.TTLInspect) == nil {
			observability.Cache().OnCacheSet(ctx, "inspect", len(data))
		}
	}
	return ins, nil
}
