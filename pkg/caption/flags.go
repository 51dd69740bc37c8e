package caption

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/captioner/pkg/errors"
)

// Recognised flag names.
const (
	FlagCenter    = "center"
	FlagDark      = "dark"
	FlagTagAuthor = "tagauth"
)

// MaxQuotedTitleLength caps titles taken from free-form request text.
const MaxQuotedTitleLength = 512

// Flags are the independent caption toggles.
type Flags struct {
	Center    bool
	Dark      bool
	TagAuthor bool
}

// ParseFlags parses flag names. Unknown names are an error.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
		case FlagCenter:
			f.Center = true
		case FlagDark:
			f.Dark = true
		case FlagTagAuthor, "tag_author", "tag-author":
			f.TagAuthor = true
		default:
			return Flags{}, errors.New(errors.ErrCodeInvalidOption, "unknown flag %q (want %s, %s or %s)", raw, FlagCenter, FlagDark, FlagTagAuthor)
		}
	}
	return f, nil
}

// Names returns the set flags in canonical order.
func (f Flags) Names() []string {
	var names []string
	if f.Center {
		names = append(names, FlagCenter)
	}
	if f.Dark {
		names = append(names, FlagDark)
	}
	if f.TagAuthor {
		names = append(names, FlagTagAuthor)
	}
	return names
}

// String joins the set flags with commas.
func (f Flags) String() string {
	return strings.Join(f.Names(), ",")
}

var (
	darkTriggers   = []string{"!dark", "!darkmode", "!black", "!d"}
	centerTriggers = []string{"!center", "!middle", "!c"}
	authorTriggers = []string{"!author", "tagauthor", "tagauth", "!a"}
)

// FlagsFromText picks trigger words such as "!dark" or "!center" out of a
// free-form request. Triggers must appear as whole whitespace-separated
// words and are matched case-insensitively.
func FlagsFromText(body string) Flags {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(body)) {
		words[strings.TrimRight(w, ".,;:")] = true
	}
	anyOf := func(triggers []string) bool {
		for _, t := range triggers {
			if words[t] {
				return true
			}
		}
		return false
	}
	return Flags{
		Center:    anyOf(centerTriggers),
		Dark:      anyOf(darkTriggers),
		TagAuthor: anyOf(authorTriggers),
	}
}

// ExtractQuotedTitle finds a title quoted right after a u/<mention> in
// request text, as in `u/captionbot "My title"`. Straight and curly quotes
// are accepted. Titles longer than MaxQuotedTitleLength are ignored.
func ExtractQuotedTitle(body, mention string) (string, bool) {
	if mention == "" {
		return "", false
	}
	re, err := regexp.Compile(`(?i)u/` + regexp.QuoteMeta(mention) + `\s*["“”](.+)["“”]`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	title := m[1]
	if utf8.RuneCountInString(title) > MaxQuotedTitleLength {
		return "", false
	}
	return title, true
}
