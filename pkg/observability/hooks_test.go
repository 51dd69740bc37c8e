package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	c := NoopCaptionHooks{}
	c.OnDecode(ctx, "gif", 12, time.Millisecond, nil)
	c.OnCaptionStart(ctx, "boot", 1)
	c.OnCaptionComplete(ctx, "boot", 1, true, time.Second, nil)
	c.OnEncode(ctx, "png", 2048, time.Millisecond, nil)

	k := NoopCacheHooks{}
	k.OnCacheHit(ctx, "caption")
	k.OnCacheMiss(ctx, "caption")
	k.OnCacheSet(ctx, "caption", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/caption")
	h.OnResponse(ctx, "POST", "/v1/caption", 200, time.Second)
	h.OnError(ctx, "POST", "/v1/caption", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Caption().(NoopCaptionHooks); !ok {
		t.Error("Caption() should return NoopCaptionHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customCaption := &testCaptionHooks{}
	SetCaptionHooks(customCaption)
	if Caption() != customCaption {
		t.Error("SetCaptionHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Caption().(NoopCaptionHooks); !ok {
		t.Error("Reset() should restore NoopCaptionHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCaptionHooks{}
	SetCaptionHooks(custom)
	SetCaptionHooks(nil)

	if Caption() != custom {
		t.Error("SetCaptionHooks(nil) should be ignored")
	}

	Reset()
}

type testCaptionHooks struct{ NoopCaptionHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
