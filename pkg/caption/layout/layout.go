// Package layout breaks a caption title into lines that fit a canvas width.
//
// Layout is a pure function of the title, a [Measurer], the canvas width,
// the line-breaking [Policy] and the margin. It never fails: the wrap policy
// always terminates with every word placed, and a word wider than the canvas
// simply overflows on its own line.
package layout

import (
	"regexp"
	"strings"
)

// Measurer reports the rendered size of a string in pixels.
type Measurer interface {
	Width(s string) int
	Height(s string) int
}

// Result is the outcome of laying out one title.
type Result struct {
	// Lines are the rendered lines, top to bottom. An empty title yields a
	// single empty line so callers can still allocate the minimum band.
	Lines []string

	// LineHeight is the vertical advance between lines: the height of the
	// whole title plus the margin.
	LineHeight int

	// WhitespaceHeight is the height of the caption band.
	WhitespaceHeight int

	// Policy is the policy that produced Lines.
	Policy Policy

	// FellBack is true when the delimiter policy overflowed and the wrap
	// policy was used instead.
	FellBack bool
}

var resolutionTag = regexp.MustCompile(`\s?\[[0-9]+\s?[xX*×]\s?[0-9]+\]`)

// StripResolution removes bracketed resolution tags such as "[1920x1080]".
// It is idempotent.
func StripResolution(title string) string {
	for {
		stripped := resolutionTag.ReplaceAllString(title, "")
		if stripped == title {
			return stripped
		}
		title = stripped
	}
}

// Compute lays out title for a canvas of the given width.
// The title is expected to be stripped of resolution tags already.
func Compute(title string, width int, m Measurer, policy Policy, margin int) Result {
	var (
		lines    []string
		used     = policy
		fellBack bool
	)
	switch policy {
	case PolicyDelimiter:
		lines = splitOnDelimiter(title)
		if overflows(lines, width, m, margin) {
			lines = wrapWords(title, width, m, margin)
			used = PolicyWrap
			fellBack = true
		}
	default:
		lines = wrapWords(title, width, m, margin)
		used = PolicyWrap
	}

	if len(lines) == 0 {
		lines = []string{""}
	}

	lineHeight := m.Height(title) + margin
	return Result{
		Lines:            lines,
		LineHeight:       lineHeight,
		WhitespaceHeight: lineHeight*len(lines) + margin,
		Policy:           used,
		FellBack:         fellBack,
	}
}

// splitOnDelimiter breaks after every occurrence of the first delimiter seen
// in the title. Spaces right after a break stay on the finished line; other
// leading spaces on a fresh line are dropped.
func splitOnDelimiter(title string) []string {
	var (
		lines     = []string{""}
		delimiter rune
		justSplit bool
	)
	for _, r := range title {
		cur := len(lines) - 1
		if r == ' ' && lines[cur] == "" {
			if justSplit && cur > 0 {
				lines[cur-1] += " "
			}
			continue
		}
		justSplit = false
		lines[cur] += string(r)
		if delimiter == 0 && strings.ContainsRune(",;.", r) {
			delimiter = r
		}
		if r == delimiter {
			lines = append(lines, "")
			justSplit = true
		}
	}
	return nonEmpty(lines)
}

// wrapWords packs whitespace-separated words greedily. A word that does not
// fit on the current line starts the next one, even if it overflows there.
func wrapWords(title string, width int, m Measurer, margin int) []string {
	var (
		lines []string
		words []string
	)
	for _, word := range strings.Fields(title) {
		words = append(words, word)
		if m.Width(strings.Join(words, " "))+margin <= width {
			continue
		}
		if len(words) > 1 {
			lines = append(lines, strings.Join(words[:len(words)-1], " "))
		}
		words = []string{word}
	}
	if len(words) > 0 {
		lines = append(lines, strings.Join(words, " "))
	}
	return nonEmpty(lines)
}

func overflows(lines []string, width int, m Measurer, margin int) bool {
	for _, line := range lines {
		if m.Width(line)+margin > width {
			return true
		}
	}
	return false
}

func nonEmpty(lines []string) []string {
	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
