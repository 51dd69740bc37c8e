package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/captioner/pkg/observability"
)

// traceHooks turns pipeline and cache events into debug log lines.
type traceHooks struct {
	observability.NoopHTTPHooks
	logger *log.Logger
}

// EnableTracing registers hooks that log every decode, caption, encode and
// cache event at debug level on l.
func EnableTracing(l *log.Logger) {
	h := &traceHooks{logger: l.WithPrefix("trace")}
	observability.SetCaptionHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *traceHooks) OnDecode(_ context.Context, format string, frames int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("decode failed", "took", d, "err", err)
		return
	}
	h.logger.Debug("decoded", "format", format, "frames", frames, "took", d)
}

func (h *traceHooks) OnCaptionStart(_ context.Context, profile string, frames int) {
	h.logger.Debug("caption start", "profile", profile, "frames", frames)
}

func (h *traceHooks) OnCaptionComplete(_ context.Context, profile string, frames int, upscaled bool, d time.Duration, err error) {
	h.logger.Debug("caption done", "profile", profile, "frames", frames, "upscaled", upscaled, "took", d, "err", err)
}

func (h *traceHooks) OnEncode(_ context.Context, format string, size int, d time.Duration, err error) {
	h.logger.Debug("encoded", "format", format, "bytes", size, "took", d, "err", err)
}

func (h *traceHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "kind", keyType)
}

func (h *traceHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "kind", keyType)
}

func (h *traceHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache store", "kind", keyType, "bytes", size)
}

func (h *traceHooks) OnError(_ context.Context, method, path string, err error) {
	h.logger.Debug("request failed", "method", method, "path", path, "err", err)
}
