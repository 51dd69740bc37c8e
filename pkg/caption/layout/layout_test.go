package layout

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

// runeMeasurer is a monospace measurer: every rune is 10px wide and any
// non-empty string is 20px tall.
type runeMeasurer struct{}

func (runeMeasurer) Width(s string) int { return 10 * utf8.RuneCountInString(s) }

func (runeMeasurer) Height(s string) int {
	if s == "" {
		return 0
	}
	return 20
}

const margin = 10

func TestStripResolution(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Cute Cat [1920x1080]", "Cute Cat"},
		{"Cute Cat[1920X1080]", "Cute Cat"},
		{"Wide [3840 × 1600] shot", "Wide shot"},
		{"Star [10*20]", "Star"},
		{"Two [1x2] [3x4]", "Two"},
		{"Not a tag [abc]", "Not a tag [abc]"},
		{"Plain title", "Plain title"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := StripResolution(tt.input)
			if got != tt.want {
				t.Errorf("StripResolution(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := StripResolution(got); again != got {
				t.Errorf("StripResolution not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestComputeDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"comma series", "a, b, c", []string{"a, ", "b, ", "c"}},
		{"first delimiter wins", "one; two, three; four", []string{"one; ", "two, three; ", "four"}},
		{"trailing delimiter", "hello.", []string{"hello."}},
		{"no delimiter", "just words", []string{"just words"}},
		{"leading spaces dropped", "  hi, there", []string{"hi, ", "there"}},
		{"period", "First. Second. Third", []string{"First. ", "Second. ", "Third"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.title, 1000, runeMeasurer{}, PolicyDelimiter, margin)
			if !reflect.DeepEqual(got.Lines, tt.want) {
				t.Errorf("Lines = %q, want %q", got.Lines, tt.want)
			}
			if got.Policy != PolicyDelimiter || got.FellBack {
				t.Errorf("Policy = %v FellBack = %v, want delimiter without fallback", got.Policy, got.FellBack)
			}
		})
	}
}

func TestComputeDelimiterFallback(t *testing.T) {
	title := "this first clause is rather long, short"
	width := 200

	got := Compute(title, width, runeMeasurer{}, PolicyDelimiter, margin)
	want := Compute(title, width, runeMeasurer{}, PolicyWrap, margin)

	if !reflect.DeepEqual(got.Lines, want.Lines) {
		t.Errorf("fallback Lines = %q, want wrap result %q", got.Lines, want.Lines)
	}
	if !got.FellBack || got.Policy != PolicyWrap {
		t.Errorf("FellBack = %v Policy = %v, want true/wrap", got.FellBack, got.Policy)
	}
	if got.WhitespaceHeight != want.WhitespaceHeight {
		t.Errorf("WhitespaceHeight = %d, want %d", got.WhitespaceHeight, want.WhitespaceHeight)
	}
}

func TestComputeWrapFits(t *testing.T) {
	title := "the quick brown fox jumps over the lazy dog and keeps on running far away"
	for _, width := range []int{120, 200, 310, 500} {
		got := Compute(title, width, runeMeasurer{}, PolicyWrap, margin)

		if strings.Join(got.Lines, " ") != title {
			t.Errorf("width %d: words lost or reordered: %q", width, got.Lines)
		}
		for _, line := range got.Lines {
			if line == "" {
				t.Errorf("width %d: empty line in %q", width, got.Lines)
			}
			if (runeMeasurer{}).Width(line)+margin > width && strings.Contains(line, " ") {
				t.Errorf("width %d: line %q overflows", width, line)
			}
		}
	}
}

func TestComputeLongWord(t *testing.T) {
	got := Compute("Supercalifragilistic is long", 100, runeMeasurer{}, PolicyWrap, margin)
	want := []string{"Supercalifragilistic", "is long"}
	if !reflect.DeepEqual(got.Lines, want) {
		t.Errorf("Lines = %q, want %q", got.Lines, want)
	}

	got = Compute("tiny Supercalifragilistic end", 100, runeMeasurer{}, PolicyWrap, margin)
	want = []string{"tiny", "Supercalifragilistic", "end"}
	if !reflect.DeepEqual(got.Lines, want) {
		t.Errorf("Lines = %q, want %q", got.Lines, want)
	}
}

func TestComputeHeights(t *testing.T) {
	got := Compute("a, b, c", 1000, runeMeasurer{}, PolicyDelimiter, margin)
	if got.LineHeight != 30 {
		t.Errorf("LineHeight = %d, want 30", got.LineHeight)
	}
	if got.WhitespaceHeight != 30*3+margin {
		t.Errorf("WhitespaceHeight = %d, want %d", got.WhitespaceHeight, 30*3+margin)
	}
}

func TestComputeEmpty(t *testing.T) {
	for _, policy := range []Policy{PolicyWrap, PolicyDelimiter} {
		t.Run(policy.String(), func(t *testing.T) {
			got := Compute("", 500, runeMeasurer{}, policy, margin)
			if !reflect.DeepEqual(got.Lines, []string{""}) {
				t.Errorf("Lines = %q, want [\"\"]", got.Lines)
			}
			if got.WhitespaceHeight != 2*margin {
				t.Errorf("WhitespaceHeight = %d, want %d", got.WhitespaceHeight, 2*margin)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    Policy
		wantErr bool
	}{
		{"wrap", PolicyWrap, false},
		{"Delimiter", PolicyDelimiter, false},
		{"split", PolicyDelimiter, false},
		{"justify", PolicyWrap, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePolicy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
