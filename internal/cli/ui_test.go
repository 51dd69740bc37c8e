package cli

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/captioner/pkg/pipeline"
)

func TestResultStats(t *testing.T) {
	tests := []struct {
		name string
		res  pipeline.Result
		want []string
	}{
		{"still", pipeline.Result{Format: "png", Width: 800, Height: 700, Frames: 1, Lines: []string{"a"}}, []string{"800x700 png", "1 line", "fresh"}},
		{"animation", pipeline.Result{Format: "gif", Width: 500, Height: 600, Frames: 12, Lines: []string{"a", "b"}, Duration: 1200 * time.Millisecond, Upscaled: true, CacheHit: true}, []string{"12 frames", "2 lines", "1.2s", "upscaled", "cached"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultStats(&tt.res)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("resultStats() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestFormatDelays(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		in   []time.Duration
		want string
	}{
		{nil, ""},
		{[]time.Duration{100 * ms}, "100ms"},
		{[]time.Duration{100 * ms, 100 * ms, 100 * ms, 50 * ms}, "100ms ×3, 50ms"},
	}
	for _, tt := range tests {
		if got := formatDelays(tt.in); got != tt.want {
			t.Errorf("formatDelays(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProfileTable(t *testing.T) {
	isolate(t)
	c := New(io.Discard, LogInfo)
	cfg, err := c.config()
	if err != nil {
		t.Fatal(err)
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		t.Fatal(err)
	}
	out := profileTable(profiles)
	for _, want := range []string{"boot", "general *", "width/16", "delimiter", "below"} {
		if !strings.Contains(out, want) {
			t.Errorf("profileTable() missing %q:\n%s", want, out)
		}
	}
}
