// Package observability lets a binary attach metrics or tracing to captioner
// without the engine packages importing a backend.
//
// There are three event families (caption, cache and HTTP). Each has an
// interface, a no-op implementation used until something else is registered,
// and a getter the instrumented code calls on every event:
//
//	observability.Caption().OnCaptionStart(ctx, profile, frames)
//
// Only main (or a test) should call the Set functions.
package observability

import (
	"context"
	"sync"
	"time"
)

// CaptionHooks receives events from the caption pipeline. Start and Complete
// fire once per image or animation, not per frame.
type CaptionHooks interface {
	OnDecode(ctx context.Context, format string, frames int, duration time.Duration, err error)
	OnCaptionStart(ctx context.Context, profile string, frames int)
	OnCaptionComplete(ctx context.Context, profile string, frames int, upscaled bool, duration time.Duration, err error)
	OnEncode(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives cache lookups; keyType is "caption" or "inspect".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int) // size in bytes
}

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	// OnError fires when a handler answers with an error payload.
	OnError(ctx context.Context, method, path string, err error)
}

// The Noop types ignore every event.
type (
	NoopCaptionHooks struct{}
	NoopCacheHooks   struct{}
	NoopHTTPHooks    struct{}
)

func (NoopCaptionHooks) OnDecode(context.Context, string, int, time.Duration, error) {}
func (NoopCaptionHooks) OnCaptionStart(context.Context, string, int)                {}
func (NoopCaptionHooks) OnCaptionComplete(context.Context, string, int, bool, time.Duration, error) {
}
func (NoopCaptionHooks) OnEncode(context.Context, string, int, time.Duration, error) {}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

type registry struct {
	mu      sync.RWMutex
	caption CaptionHooks
	cache   CacheHooks
	http    HTTPHooks
}

var hooks = &registry{
	caption: NoopCaptionHooks{},
	cache:   NoopCacheHooks{},
	http:    NoopHTTPHooks{},
}

// SetCaptionHooks registers caption hooks. Nil is ignored.
func SetCaptionHooks(h CaptionHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.caption = h
	hooks.mu.Unlock()
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.cache = h
	hooks.mu.Unlock()
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.http = h
	hooks.mu.Unlock()
}

func Caption() CaptionHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.caption
}

func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset restores the no-op hooks.
func Reset() {
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	hooks.caption = NoopCaptionHooks{}
	hooks.cache = NoopCacheHooks{}
	hooks.http = NoopHTTPHooks{}
}
