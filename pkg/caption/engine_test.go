package caption

import (
	"image"
	"image/color"
	"image/gif"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/captioner/pkg/caption/animate"
	"github.com/matzehuels/captioner/pkg/caption/layout"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/fonts"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 120, 200, 255
	}
	return img
}

func TestEngineCaption(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name         string
		w, h         int
		req          Request
		wantW        int
		wantUpscaled bool
		wantFontSize int
	}{
		{
			name:         "large boot",
			w:            1920,
			h:            1080,
			req:          Request{Title: "Cute Cat [1920x1080]", Profile: ProfileBoot},
			wantW:        1920,
			wantFontSize: 120,
		},
		{
			name:         "small general upscaled",
			w:            100,
			h:            100,
			req:          Request{Title: "Tiny thumbnail", Profile: ProfileGeneral},
			wantW:        500,
			wantUpscaled: true,
			wantFontSize: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Caption(solid(tt.w, tt.h), tt.req)
			if err != nil {
				t.Fatalf("Caption() error = %v", err)
			}
			b := res.Image.Bounds()
			if b.Dx() != tt.wantW {
				t.Errorf("width = %d, want %d", b.Dx(), tt.wantW)
			}
			if res.Upscaled != tt.wantUpscaled {
				t.Errorf("Upscaled = %v, want %v", res.Upscaled, tt.wantUpscaled)
			}
			if res.FontSize != tt.wantFontSize {
				t.Errorf("FontSize = %d, want %d", res.FontSize, tt.wantFontSize)
			}
			srcH := tt.h * tt.wantW / tt.w
			if b.Dy() != srcH+res.Layout.WhitespaceHeight {
				t.Errorf("height = %d, want %d", b.Dy(), srcH+res.Layout.WhitespaceHeight)
			}
		})
	}
}

func TestEngineStripsResolution(t *testing.T) {
	res, err := NewEngine(nil).Caption(solid(1920, 1080), Request{Title: "Cute Cat [1920x1080]", Profile: ProfileBoot})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Layout.Lines, []string{"Cute Cat"}) {
		t.Errorf("Lines = %q, want [\"Cute Cat\"]", res.Layout.Lines)
	}
}

func TestEngineDelimiterScenario(t *testing.T) {
	res, err := NewEngine(nil).Caption(solid(1920, 1080), Request{Title: "a, b, c", Profile: ProfileBoot})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a, ", "b, ", "c"}
	if !reflect.DeepEqual(res.Layout.Lines, want) {
		t.Errorf("Lines = %q, want %q", res.Layout.Lines, want)
	}
}

func TestEngineLongWordScenario(t *testing.T) {
	word := "averylongsingleword-that-does-not-fit"
	res, err := NewEngine(nil).Caption(solid(500, 500), Request{
		Title:   word,
		Profile: Profile{Name: "narrow", FontScaleFactor: 8, Policy: layout.PolicyWrap},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Layout.Lines, []string{word}) {
		t.Errorf("Lines = %q, want [%q]", res.Layout.Lines, word)
	}
}

func TestEngineDarkKeepsDimensions(t *testing.T) {
	engine := NewEngine(nil)
	req := Request{Title: "Night, city, lights", Profile: ProfileBoot}
	light, err := engine.Caption(solid(800, 600), req)
	if err != nil {
		t.Fatal(err)
	}
	req.Flags.Dark = true
	dark, err := engine.Caption(solid(800, 600), req)
	if err != nil {
		t.Fatal(err)
	}
	if light.Image.Bounds() != dark.Image.Bounds() {
		t.Errorf("dark bounds = %v, want %v", dark.Image.Bounds(), light.Image.Bounds())
	}
	if !reflect.DeepEqual(light.Layout, dark.Layout) {
		t.Error("dark mode changed the layout")
	}
	r, g, b, _ := dark.Image.At(799, 1).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("dark band pixel = %v, want black", dark.Image.At(799, 1))
	}
}

func TestEngineTagAuthor(t *testing.T) {
	res, err := NewEngine(nil).Caption(solid(600, 600), Request{
		Title:   "Portrait",
		Profile: ProfileGeneral,
		Flags:   Flags{TagAuthor: true},
		Author:  "u/photographer",
		Settings: Settings{
			AttributionHeight: 80,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := res.Image.Bounds().Dy(), 600+res.Layout.WhitespaceHeight+80; got != want {
		t.Errorf("height = %d, want %d", got, want)
	}
}

func TestEngineErrors(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Caption(solid(10, 10), Request{Title: "x", Profile: Profile{Name: "bad"}})
	if !errors.Is(err, errors.ErrCodeInvalidProfile) {
		t.Errorf("zero scale factor error = %v, want %s", err, errors.ErrCodeInvalidProfile)
	}

	_, err = engine.Caption(image.NewRGBA(image.Rect(0, 0, 0, 0)), Request{Title: "x", Profile: ProfileBoot})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty image error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}

	_, err = engine.Caption(solid(10, 10), Request{Title: "x", Profile: ProfileBoot, Settings: Settings{Margin: -1}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative margin error = %v, want %s", err, errors.ErrCodeInvalidConfig)
	}
}

func TestEngineCaptionAnimation(t *testing.T) {
	pal := color.Palette{color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255}}
	g := &gif.GIF{LoopCount: 0, Config: image.Config{Width: 120, Height: 80, ColorModel: pal}}
	delays := []int{4, 7, 12, 3}
	for i, d := range delays {
		frame := image.NewPaletted(image.Rect(0, 0, 120, 80), pal)
		for j := range frame.Pix {
			frame.Pix[j] = uint8(i % 2)
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, d)
	}

	src, err := animate.NewGIFSource(g)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := NewEngine(fonts.Default()).CaptionAnimation(src, Request{Title: "Looping, forever", Profile: ProfileBoot})
	if err != nil {
		t.Fatalf("CaptionAnimation() error = %v", err)
	}

	if len(seq.Frames) != len(delays) {
		t.Errorf("frames = %d, want %d", len(seq.Frames), len(delays))
	}
	if seq.TotalDuration() != 260*time.Millisecond {
		t.Errorf("TotalDuration() = %v, want 260ms", seq.TotalDuration())
	}
	if seq.Width != 750 {
		t.Errorf("Width = %d, want 750 (upscaled)", seq.Width)
	}
}

func TestEnginePlanMatchesCaption(t *testing.T) {
	engine := NewEngine(nil)
	tests := []struct {
		name string
		w, h int
		req  Request
	}{
		{"boot large", 1920, 1080, Request{Title: "One, two, three", Profile: ProfileBoot}},
		{"general small", 120, 80, Request{Title: "Small and wrapped title text", Profile: ProfileGeneral}},
		{"tag author", 600, 600, Request{Title: "Hi", Profile: ProfileGeneral, Flags: Flags{TagAuthor: true}, Author: "me"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := engine.Plan(tt.w, tt.h, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			res, err := engine.Caption(solid(tt.w, tt.h), tt.req)
			if err != nil {
				t.Fatal(err)
			}
			b := res.Image.Bounds()
			if plan.Width != b.Dx() || plan.Height != b.Dy() {
				t.Errorf("Plan size = %dx%d, Caption size = %dx%d", plan.Width, plan.Height, b.Dx(), b.Dy())
			}
			if plan.Upscaled != res.Upscaled || plan.FontSize != res.FontSize {
				t.Errorf("Plan = %+v, Caption upscaled=%v font=%d", plan, res.Upscaled, res.FontSize)
			}
			if !reflect.DeepEqual(plan.Layout, res.Layout) {
				t.Errorf("Plan layout = %+v, want %+v", plan.Layout, res.Layout)
			}
		})
	}
}

func TestEngineCaptionAnimationRejectsMixedFrameSizes(t *testing.T) {
	src := animate.NewSliceSource([]animate.Frame{
		{Image: solid(100, 200), Duration: 50 * time.Millisecond},
		{Image: solid(50, 100), Duration: 50 * time.Millisecond},
	}, 0)

	_, err := NewEngine(nil).CaptionAnimation(src, Request{Title: "mixed", Profile: ProfileGeneral})
	if !errors.Is(err, errors.ErrCodeAnimationFrame) {
		t.Errorf("CaptionAnimation() error = %v, want %s", err, errors.ErrCodeAnimationFrame)
	}
}

func TestEngineConcurrentCaption(t *testing.T) {
	engine := NewEngine(fonts.Default())
	want, err := engine.Caption(solid(300, 200), Request{Title: "Shared fonts, many callers", Profile: ProfileBoot})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.Caption(solid(300, 200), Request{Title: "Shared fonts, many callers", Profile: ProfileBoot})
			if err != nil {
				errs <- err
				return
			}
			if !reflect.DeepEqual(res.Layout, want.Layout) || res.Image.Bounds() != want.Image.Bounds() {
				t.Errorf("concurrent result %v differs from %v", res.Image.Bounds(), want.Image.Bounds())
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Caption() error = %v", err)
	}
}
