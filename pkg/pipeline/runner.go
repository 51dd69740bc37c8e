package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/captioner/pkg/cache"
	"github.com/matzehuels/captioner/pkg/caption"
	"github.com/matzehuels/captioner/pkg/caption/animate"
	"github.com/matzehuels/captioner/pkg/caption/compose"
	"github.com/matzehuels/captioner/pkg/codec"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner holds no per-request state; multiple goroutines can safely
// share one Runner.
type Runner struct {
	Engine   *caption.Engine
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Profiles caption.ProfileSet
	Settings caption.Settings

	// AnimationTimeout bounds captioning of one animation. Zero disables it.
	AnimationTimeout time.Duration

	// CacheTTL is how long rendered artifacts stay cached; zero selects
	// cache.TTLCaption.
	CacheTTL time.Duration
}

// NewRunner creates a runner.
// A nil engine uses the built-in font, a nil cache disables caching, a nil
// keyer selects DefaultKeyer and a nil logger selects log.Default().
func NewRunner(engine *caption.Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if engine == nil {
		engine = caption.NewEngine(nil)
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Engine:           engine,
		Cache:            c,
		Keyer:            keyer,
		Logger:           logger,
		Profiles:         caption.DefaultProfiles(),
		Settings:         caption.DefaultSettings(),
		AnimationTimeout: DefaultAnimationTimeout,
	}
}

// Execute runs decode → caption → encode with caching.
func (r *Runner) Execute(ctx context.Context, input []byte, opts Options) (*Result, error) {
	req, format, err := r.resolve(opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		InputHash: cache.Hash(input),
		Stats:     Stats{InputBytes: len(input)},
	}

	decoded, decodeTime, err := r.decode(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	result.Stats.DecodeTime = decodeTime

	animated := decoded.Animated && (format == codec.FormatAuto || format == codec.FormatGIF)
	if animated {
		format = codec.FormatGIF
	} else {
		format = codec.ResolveFormat(format, decoded.Format)
	}
	result.Format = format

	key := r.Keyer.CaptionKey(result.InputHash, r.keyOpts(req, format))
	if !opts.Refresh {
		if hit := r.fromCache(ctx, key, result); hit {
			r.Logger.Info("cache hit", "format", format, "bytes", len(result.Artifact))
			return result, nil
		}
	}

	observability.Caption().OnCaptionStart(ctx, req.Profile.Name, decoded.Frames())
	captionStart := time.Now()
	if animated {
		err = r.executeAnimation(ctx, decoded, req, result)
	} else {
		var still image.Image
		if still, err = stillFrame(decoded); err == nil {
			err = r.executeStill(ctx, still, req, result)
		}
	}
	result.Stats.CaptionTime = time.Since(captionStart) - result.Stats.EncodeTime
	observability.Caption().OnCaptionComplete(ctx, req.Profile.Name, result.Frames, result.Upscaled, result.Stats.CaptionTime, err)
	if err != nil {
		return nil, err
	}
	result.Stats.OutputBytes = len(result.Artifact)

	r.Logger.Info("captioned",
		"profile", req.Profile.Name,
		"format", format,
		"frames", result.Frames,
		"size", fmt.Sprintf("%dx%d", result.Width, result.Height),
		"upscaled", result.Upscaled,
		"duration", result.Stats.CaptionTime)

	r.store(ctx, key, result)
	return result, nil
}

func (r *Runner) executeStill(ctx context.Context, img image.Image, req caption.Request, result *Result) error {
	res, err := r.Engine.Caption(img, req)
	if err != nil {
		return fmt.Errorf("caption: %w", err)
	}
	artifact, encodeTime, err := r.encodeStill(ctx, res.Image, result.Format)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	b := res.Image.Bounds()
	result.Artifact = artifact
	result.Width, result.Height = b.Dx(), b.Dy()
	result.Frames = 1
	result.Upscaled = res.Upscaled
	result.Lines = res.Layout.Lines
	result.Stats.EncodeTime = encodeTime
	return nil
}

func (r *Runner) executeAnimation(ctx context.Context, decoded *codec.Decoded, req caption.Request, result *Result) error {
	src, err := animate.NewGIFSource(decoded.GIF)
	if err != nil {
		return err
	}

	runCtx := ctx
	if r.AnimationTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.AnimationTimeout)
		defer cancel()
	}

	seq, err := race(runCtx, func() (animate.Sequence, error) {
		return r.Engine.CaptionAnimationContext(runCtx, src, req)
	})
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return errors.Wrap(errors.ErrCodeTimeout, err, "animation exceeded %s", r.AnimationTimeout)
		}
		return fmt.Errorf("caption: %w", err)
	}

	artifact, encodeTime, err := r.encodeAnimation(ctx, seq)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	// Every frame shares the source geometry, so one plan describes them all.
	b := src.Bounds()
	plan, err := r.Engine.Plan(b.Dx(), b.Dy(), req)
	if err != nil {
		return fmt.Errorf("caption: %w", err)
	}

	result.Artifact = artifact
	result.Width, result.Height = seq.Width, seq.Height
	result.Frames = len(seq.Frames)
	result.Duration = seq.TotalDuration()
	result.Upscaled = plan.Upscaled
	result.Lines = plan.Layout.Lines
	result.Stats.EncodeTime = encodeTime
	return nil
}

// race runs fn in a goroutine and returns early with ctx's error when ctx
// ends first.
func race[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{v, err}
	}()
	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// resolve turns Options into an engine request and a requested format.
func (r *Runner) resolve(opts Options) (caption.Request, string, error) {
	if err := opts.Validate(); err != nil {
		return caption.Request{}, "", fmt.Errorf("invalid options: %w", err)
	}
	profiles := r.Profiles
	if profiles == nil {
		profiles = caption.DefaultProfiles()
	}
	profile, err := profiles.Lookup(opts.Profile)
	if err != nil {
		return caption.Request{}, "", err
	}
	if opts.Placement != "" {
		profile.Placement, _ = compose.ParsePlacement(opts.Placement)
	}
	flags, _ := caption.ParseFlags(opts.Flags)
	format, _ := codec.NormalizeFormat(opts.Format)

	return caption.Request{
		Title:    opts.Title,
		Profile:  profile,
		Flags:    flags,
		Author:   opts.Author,
		Settings: r.Settings,
	}, format, nil
}

func (r *Runner) keyOpts(req caption.Request, format string) cache.CaptionKeyOpts {
	s := req.Settings.WithDefaults()
	return cache.CaptionKeyOpts{
		Title:             req.Title,
		Profile:           req.Profile.Name,
		Scale:             req.Profile.FontScaleFactor,
		Policy:            req.Profile.Policy.String(),
		Placement:         req.Profile.Placement.String(),
		Flags:             req.Flags.String(),
		Author:            req.Author,
		Format:            format,
		Font:              r.Engine.Fonts().Name(),
		MinSize:           s.MinSize,
		Margin:            s.Margin,
		AttributionHeight: s.AttributionHeight,
		Palette:           paletteKey(s.Palette),
	}
}

func paletteKey(p compose.Palette) string {
	hex := func(c color.Color) string {
		if cc, ok := colorful.MakeColor(c); ok {
			return cc.Hex()
		}
		return "none"
	}
	return strings.Join([]string{hex(p.Background), hex(p.Text), hex(p.DarkBackground), hex(p.DarkText)}, ",")
}

func (r *Runner) fromCache(ctx context.Context, key string, result *Result) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "caption")
		return false
	}
	meta, artifact, err := unpackEntry(data)
	if err != nil {
		r.Logger.Debug("discarding cache entry", "error", err)
		observability.Cache().OnCacheMiss(ctx, "caption")
		return false
	}
	observability.Cache().OnCacheHit(ctx, "caption")
	result.Artifact = artifact
	result.Format = meta.Format
	result.Width, result.Height = meta.Width, meta.Height
	result.Frames = meta.Frames
	result.Upscaled = meta.Upscaled
	result.Lines = meta.Lines
	result.Duration = meta.Duration
	result.Stats.OutputBytes = len(artifact)
	result.CacheHit = true
	return true
}

func (r *Runner) store(ctx context.Context, key string, result *Result) {
	entry, err := packEntry(artifactMeta{
		Format:   result.Format,
		Width:    result.Width,
		Height:   result.Height,
		Frames:   result.Frames,
		Upscaled: result.Upscaled,
		Lines:    result.Lines,
		Duration: result.Duration,
	}, result.Artifact)
	if err != nil {
		return
	}
	ttl := r.CacheTTL
	if ttl <= 0 {
		ttl = cache.TTLCaption
	}
	if err := r.Cache.Set(ctx, key, entry, ttl); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "caption", len(entry))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
