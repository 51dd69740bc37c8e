package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/captioner/pkg/cache"
	"github.com/matzehuels/captioner/pkg/caption"
	"github.com/matzehuels/captioner/pkg/config"
	"github.com/matzehuels/captioner/pkg/pipeline"
)

const appName = "captioner"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a CLI that logs to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newRunner builds a pipeline runner from the configuration. A cache that
// cannot be opened is logged and replaced by no caching.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	src, err := cfg.LoadFont()
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(caption.NewEngine(src), c.openCache(ctx, cfg, noCache), cfg.Keyer(), c.Logger)
	if err := cfg.Apply(runner); err != nil {
		runner.Close()
		return nil, err
	}
	return runner, nil
}

func (c *CLI) openCache(ctx context.Context, cfg *config.Config, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	opts, err := cfg.CacheOptions()
	if err != nil {
		c.Logger.Warn("caching disabled", "error", err)
		return cache.NewNullCache()
	}
	store, err := cache.Open(ctx, opts)
	if err != nil {
		c.Logger.Warn("caching disabled", "backend", opts.Backend, "error", err)
		return cache.NewNullCache()
	}
	return store
}
