// Package fonts loads the caption typeface and measures text with it.
//
// A [Source] is a parsed TrueType font. It is read-only after construction
// and safe to share between goroutines; parse it once per process. Each
// caption call derives its own [Metrics] at a pixel size, because the
// underlying font.Face carries a glyph cache and is not safe for concurrent
// use.
//
// The default source is Go Regular, compiled into the binary, so captioning
// works without any font file on disk.
package fonts

import (
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/captioner/pkg/errors"
)

// DefaultName is the name reported by the built-in source.
const DefaultName = "goregular"

// Source is a parsed font shared across caption calls.
type Source struct {
	name string
	font *truetype.Font
}

var (
	defaultSource     *Source
	defaultSourceOnce sync.Once
)

// Default returns the built-in Go Regular source. It is parsed on first use.
func Default() *Source {
	defaultSourceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			// goregular.TTF is compiled in; failing to parse it is a build defect.
			panic("fonts: parse built-in font: " + err.Error())
		}
		defaultSource = &Source{name: DefaultName, font: f}
	})
	return defaultSource
}

// Parse builds a Source from TrueType bytes.
func Parse(name string, data []byte) (*Source, error) {
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFontLoad, err, "parse font %s", name)
	}
	return &Source{name: name, font: f}, nil
}

// Load reads and parses a TrueType file. An empty path selects [Default].
// There is no fallback: a path that cannot be read or parsed is an error.
func Load(path string) (*Source, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFontLoad, err, "read font %s", path)
	}
	return Parse(path, data)
}

// Name identifies the source in logs and cache keys.
func (s *Source) Name() string { return s.name }

// Metrics returns a measuring handle for the given pixel size.
// Sizes below 1 are clamped to 1.
func (s *Source) Metrics(size int) *Metrics {
	if size < 1 {
		size = 1
	}
	face := truetype.NewFace(s.font, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Metrics{
		face:   face,
		size:   size,
		ascent: face.Metrics().Ascent.Ceil(),
	}
}

// Metrics measures strings at one pixel size. Not safe for concurrent use.
type Metrics struct {
	face   font.Face
	size   int
	ascent int
}

// Width is the advance width of s in pixels, rounded up.
func (m *Metrics) Width(s string) int {
	return font.MeasureString(m.face, s).Ceil()
}

// Height is the distance from the top of the line box to the lowest inked
// pixel of s: the font ascent plus whatever the glyphs of s descend below
// the baseline. The empty string has height 0.
func (m *Metrics) Height(s string) int {
	if s == "" {
		return 0
	}
	bounds, _ := font.BoundString(m.face, s)
	descent := bounds.Max.Y.Ceil()
	if descent < 0 {
		descent = 0
	}
	return m.ascent + descent
}

// Ascent is the distance from the top of the line box to the baseline.
func (m *Metrics) Ascent() int { return m.ascent }

// Size is the pixel size the metrics were built for.
func (m *Metrics) Size() int { return m.size }

// Face exposes the font face for drawing.
func (m *Metrics) Face() font.Face { return m.face }
