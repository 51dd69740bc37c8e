package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsFrames(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Captioning...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(out.String(), "Captioning...") {
		t.Errorf("spinner output = %q, want message", out.String())
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after Stop, want false")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	s := newSpinnerTo(ctx, &out, "Working")
	s.Start()
	cancel()
	time.Sleep(50 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Cancelled() = false after context cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Working")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Never started")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() without Start() blocked")
	}
}

func TestSpinnerDisabledIsSilent(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Hidden")
	s.enabled = false
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.StopWithSuccess("done")
	if out.String() != "" {
		t.Errorf("disabled spinner wrote %q", out.String())
	}
}
