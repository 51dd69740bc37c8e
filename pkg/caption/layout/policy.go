package layout

import (
	"strings"

	"github.com/matzehuels/captioner/pkg/errors"
)

// Policy selects how a title is broken into lines.
type Policy int

const (
	// PolicyWrap packs words greedily into the available width.
	PolicyWrap Policy = iota
	// PolicyDelimiter breaks after the first punctuation mark found in the
	// title (one of , ; .) and after every later occurrence of that same
	// mark. It falls back to PolicyWrap when any line overflows.
	PolicyDelimiter
)

func (p Policy) String() string {
	switch p {
	case PolicyDelimiter:
		return "delimiter"
	default:
		return "wrap"
	}
}

// ParsePolicy parses "wrap" or "delimiter" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wrap":
		return PolicyWrap, nil
	case "delimiter", "split":
		return PolicyDelimiter, nil
	}
	return PolicyWrap, errors.New(errors.ErrCodeInvalidOption, "unknown layout policy %q", s)
}
