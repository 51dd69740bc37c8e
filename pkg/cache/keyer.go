package cache

// CaptionKeyOpts lists every option that changes a rendered caption.
type CaptionKeyOpts struct {
	Title     string `json:"title"`
	Profile   string `json:"profile"`
	Scale     int    `json:"scale"`
	Policy    string `json:"policy"`
	Placement string `json:"placement"`
	Flags     string `json:"flags,omitempty"`
	Author    string `json:"author,omitempty"`
	Format    string `json:"format"`
	Font      string `json:"font"`

	MinSize           int    `json:"min_size"`
	Margin            int    `json:"margin"`
	AttributionHeight int    `json:"attribution_height"`
	Palette           string `json:"palette"`
}

// Keyer derives cache keys.
type Keyer interface {
	// CaptionKey keys a rendered caption by the input hash and options.
	CaptionKey(inputHash string, opts CaptionKeyOpts) string

	// InspectKey keys decoded metadata of an input.
	InspectKey(inputHash string) string
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) CaptionKey(inputHash string, opts CaptionKeyOpts) string {
	return hashKey("caption", inputHash, opts)
}

func (DefaultKeyer) InspectKey(inputHash string) string {
	return "inspect:" + inputHash
}
