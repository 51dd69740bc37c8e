package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Dir       string // file backend
	RedisAddr string // redis backend
	Password  string
	DB        int
}

// Open returns the configured backend. An empty backend name selects file.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, RedisConfig{Addr: opts.RedisAddr, Password: opts.Password, DB: opts.DB})
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}
