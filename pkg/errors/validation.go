package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidateTitle rejects titles that cannot be drawn as a single caption.
// Tabs are tolerated; every other control character (including newlines) is
// rejected since the layout engine decides line breaks itself.
//
// Length is deliberately not checked: callers pre-truncate.
func ValidateTitle(title string) error {
	for _, r := range title {
		if r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains control character %q", r)
		}
	}
	return nil
}

// ValidateOutputPath validates a destination path for a rendered caption.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Must not name a directory (trailing separator)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "output path %q names a directory", path)
	}

	return nil
}

// hexColorRegex matches #rgb and #rrggbb colour literals.
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateHexColor validates a "#rgb" or "#rrggbb" colour string.
func ValidateHexColor(s string) error {
	if !hexColorRegex.MatchString(s) {
		return New(ErrCodeInvalidConfig, "invalid colour %q: expected #rgb or #rrggbb", s)
	}
	return nil
}
