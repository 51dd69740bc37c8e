package fonts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/captioner/pkg/errors"
)

func TestDefault(t *testing.T) {
	a, b := Default(), Default()
	if a != b {
		t.Error("Default() returned different sources")
	}
	if a.Name() != DefaultName {
		t.Errorf("Name() = %q, want %q", a.Name(), DefaultName)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		src, err := Load("")
		if err != nil {
			t.Fatalf("Load(\"\") error = %v", err)
		}
		if src != Default() {
			t.Error("Load(\"\") should return the default source")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.ttf"))
		if !errors.Is(err, errors.ErrCodeFontLoad) {
			t.Errorf("Load() error = %v, want %s", err, errors.ErrCodeFontLoad)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.ttf")
		if err := os.WriteFile(path, []byte("not a font"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if !errors.Is(err, errors.ErrCodeFontLoad) {
			t.Errorf("Load() error = %v, want %s", err, errors.ErrCodeFontLoad)
		}
	})
}

func TestMetrics(t *testing.T) {
	m := Default().Metrics(32)

	if m.Size() != 32 {
		t.Errorf("Size() = %d, want 32", m.Size())
	}
	if m.Ascent() <= 0 {
		t.Errorf("Ascent() = %d, want > 0", m.Ascent())
	}
	if m.Face() == nil {
		t.Error("Face() = nil")
	}

	short, long := m.Width("cat"), m.Width("cat cat cat")
	if short <= 0 || long <= short {
		t.Errorf("Width grows with text: short=%d long=%d", short, long)
	}
	if m.Width("") != 0 {
		t.Errorf("Width(\"\") = %d, want 0", m.Width(""))
	}

	if got := m.Height(""); got != 0 {
		t.Errorf("Height(\"\") = %d, want 0", got)
	}
	flat, descender := m.Height("ace"), m.Height("gyp")
	if flat < m.Ascent() {
		t.Errorf("Height(ace) = %d, want >= ascent %d", flat, m.Ascent())
	}
	if descender <= flat {
		t.Errorf("Height(gyp) = %d, want > Height(ace) = %d", descender, flat)
	}
}

func TestMetricsScale(t *testing.T) {
	small := Default().Metrics(10).Width(strings.Repeat("m", 10))
	large := Default().Metrics(40).Width(strings.Repeat("m", 10))
	if large <= small*3 {
		t.Errorf("Width at 40px = %d, want roughly 4x width at 10px = %d", large, small)
	}
}

func TestMetricsClampsSize(t *testing.T) {
	if got := Default().Metrics(0).Size(); got != 1 {
		t.Errorf("Metrics(0).Size() = %d, want 1", got)
	}
}
