package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNetwork marks failures talking to a remote backend.
	ErrNetwork = errors.New("cache network error")

	// ErrUnknownBackend is returned by Open for unsupported backend names.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

type transientError struct{ error }

func (e transientError) Unwrap() error { return e.error }

// Transient marks err as worth retrying. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err}
}

// IsTransient reports whether err, or anything it wraps, was marked Transient.
func IsTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// Backoff retries an operation with a doubling delay between attempts.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// connectBackoff governs the initial Redis ping.
var connectBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, returns an error not marked Transient,
// or runs out of attempts. The last error is returned.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	delay := b.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsTransient(err) || attempt >= b.Attempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}
