package caption

import (
	"github.com/matzehuels/captioner/pkg/caption/canvas"
	"github.com/matzehuels/captioner/pkg/caption/compose"
	"github.com/matzehuels/captioner/pkg/errors"
)

// Settings are the engine constants shared by every profile.
type Settings struct {
	MinSize           int // shorter-side upscale threshold
	Margin            int
	AttributionHeight int
	Palette           compose.Palette
}

// DefaultSettings returns the stock settings.
func DefaultSettings() Settings {
	return Settings{
		MinSize:           canvas.DefaultMinSize,
		Margin:            compose.DefaultMargin,
		AttributionHeight: compose.DefaultAttributionHeight,
		Palette:           compose.DefaultPalette(),
	}
}

// WithDefaults fills zero fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.MinSize == 0 {
		s.MinSize = d.MinSize
	}
	if s.Margin == 0 {
		s.Margin = d.Margin
	}
	if s.AttributionHeight == 0 {
		s.AttributionHeight = d.AttributionHeight
	}
	if s.Palette.Background == nil {
		s.Palette.Background = d.Palette.Background
	}
	if s.Palette.Text == nil {
		s.Palette.Text = d.Palette.Text
	}
	if s.Palette.DarkBackground == nil {
		s.Palette.DarkBackground = d.Palette.DarkBackground
	}
	if s.Palette.DarkText == nil {
		s.Palette.DarkText = d.Palette.DarkText
	}
	return s
}

// Validate rejects negative sizes.
func (s Settings) Validate() error {
	if s.MinSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "min_size must not be negative, got %d", s.MinSize)
	}
	if s.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "margin must not be negative, got %d", s.Margin)
	}
	if s.AttributionHeight < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "attribution_height must not be negative, got %d", s.AttributionHeight)
	}
	return nil
}
