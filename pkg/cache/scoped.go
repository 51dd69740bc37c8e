package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several deployments
// can share one Redis without seeing each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer selects
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) CaptionKey(inputHash string, opts CaptionKeyOpts) string {
	return k.prefix + k.inner.CaptionKey(inputHash, opts)
}

func (k *ScopedKeyer) InspectKey(inputHash string) string {
	return k.prefix + k.inner.InspectKey(inputHash)
}
