package caption

import (
	"sort"
	"strings"

	"github.com/matzehuels/captioner/pkg/caption/compose"
	"github.com/matzehuels/captioner/pkg/caption/layout"
	"github.com/matzehuels/captioner/pkg/errors"
)

// Profile bundles the layout choices that differ between caption styles.
type Profile struct {
	Name            string
	FontScaleFactor int // font pixel size = canvas width / FontScaleFactor
	Policy          layout.Policy
	Placement       compose.Placement
}

// Built-in profiles.
var (
	// ProfileBoot splits on punctuation with large text above the image.
	ProfileBoot = Profile{
		Name:            "boot",
		FontScaleFactor: 16,
		Policy:          layout.PolicyDelimiter,
		Placement:       compose.PlacementAbove,
	}

	// ProfileGeneral word-wraps smaller text below the image.
	ProfileGeneral = Profile{
		Name:            "general",
		FontScaleFactor: 32,
		Policy:          layout.PolicyWrap,
		Placement:       compose.PlacementBelow,
	}
)

// DefaultProfileName is used when a request names no profile.
const DefaultProfileName = "general"

// Validate checks that the profile can drive a caption.
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New(errors.ErrCodeInvalidProfile, "profile name is empty")
	}
	if p.FontScaleFactor <= 0 {
		return errors.New(errors.ErrCodeInvalidProfile, "profile %s: scale factor must be positive, got %d", p.Name, p.FontScaleFactor)
	}
	return nil
}

// ProfileSet is a named collection of profiles.
type ProfileSet map[string]Profile

// DefaultProfiles returns a fresh set holding the built-in profiles.
func DefaultProfiles() ProfileSet {
	return ProfileSet{
		ProfileBoot.Name:    ProfileBoot,
		ProfileGeneral.Name: ProfileGeneral,
	}
}

// Lookup finds a profile by name, case-insensitively. An empty name selects
// DefaultProfileName.
func (ps ProfileSet) Lookup(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := ps[name]
	if !ok {
		return Profile{}, errors.New(errors.ErrCodeInvalidProfile, "unknown profile %q (available: %s)", name, strings.Join(ps.Names(), ", "))
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (ps ProfileSet) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile finds a built-in profile.
func LookupProfile(name string) (Profile, error) {
	return DefaultProfiles().Lookup(name)
}
