// Package config loads captioner settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/captioner/config.toml unless a path is
// given explicitly. Every key is optional; a missing file yields Default().
//
//	font = "/usr/share/fonts/TTF/DejaVuSans.ttf"
//	min_size = 500
//	animation_timeout = "90s"
//
//	[palette]
//	background = "#fffff0"
//
//	[profiles.meme]
//	scale_factor = 12
//	policy = "delimiter"
//	placement = "above"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/captioner/pkg/cache"
	"github.com/matzehuels/captioner/pkg/caption"
	"github.com/matzehuels/captioner/pkg/caption/compose"
	"github.com/matzehuels/captioner/pkg/caption/layout"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/fonts"
	"github.com/matzehuels/captioner/pkg/pipeline"
)

const appName = "captioner"

// Config is the decoded configuration file.
type Config struct {
	Font              string   `toml:"font"`
	MinSize           int      `toml:"min_size"`
	Margin            int      `toml:"margin"`
	AttributionHeight int      `toml:"attribution_height"`
	AnimationTimeout  Duration `toml:"animation_timeout"`

	Palette   PaletteConfig            `toml:"palette"`
	Overrides map[string]ProfileConfig `toml:"profiles"`
	Cache     CacheConfig              `toml:"cache"`
	Server    ServerConfig             `toml:"server"`
	Batch     BatchConfig              `toml:"batch"`
}

// PaletteConfig holds hex colours; empty entries keep the stock colour.
type PaletteConfig struct {
	Background     string `toml:"background"`
	Text           string `toml:"text"`
	DarkBackground string `toml:"dark_background"`
	DarkText       string `toml:"dark_text"`
}

// ProfileConfig overrides a built-in profile or defines a new one.
// Fields left empty are inherited from the built-in profile of the same
// name, or from the general profile for new names.
type ProfileConfig struct {
	ScaleFactor int    `toml:"scale_factor"`
	Policy      string `toml:"policy"`
	Placement   string `toml:"placement"`
}

type CacheConfig struct {
	Backend   string   `toml:"backend"` // file, redis or none
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	Password  string   `toml:"password"`
	DB        int      `toml:"db"`
	TTL       Duration `toml:"ttl"`
	Namespace string   `toml:"namespace"` // key prefix when a redis is shared
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type BatchConfig struct {
	Workers int `toml:"workers"`
}

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	s := caption.DefaultSettings()
	return &Config{
		MinSize:           s.MinSize,
		Margin:            s.Margin,
		AttributionHeight: s.AttributionHeight,
		AnimationTimeout:  Duration{pipeline.DefaultAnimationTimeout},
		Cache: CacheConfig{
			Backend: cache.BackendFile,
			TTL:     Duration{cache.TTLCaption},
		},
		Server: ServerConfig{Addr: ":8080", MaxUploadMB: 20},
		Batch:  BatchConfig{Workers: 4},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/captioner/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns $XDG_CACHE_HOME/captioner, falling back to ~/.cache.
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads path on top of Default and validates the result. An empty
// path selects DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	return Parse(path, data)
}

// Parse decodes TOML data on top of Default and validates it. name is only
// used in error messages.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", name)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value that the engine, cache and server will use.
func (c *Config) Validate() error {
	// Zero means "default" to caption.Settings, so it cannot be configured.
	for _, v := range []struct {
		key string
		val int
	}{
		{"min_size", c.MinSize},
		{"margin", c.Margin},
		{"attribution_height", c.AttributionHeight},
	} {
		if v.val <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be positive, got %d", v.key, v.val)
		}
	}
	if _, err := c.Settings(); err != nil {
		return err
	}
	if _, err := c.Profiles(); err != nil {
		return err
	}
	if c.AnimationTimeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "animation_timeout must not be negative")
	}
	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Server.MaxUploadMB < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_upload_mb must not be negative")
	}
	if c.Batch.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "batch.workers must not be negative")
	}
	return nil
}

// Settings converts the engine keys into caption.Settings.
func (c *Config) Settings() (caption.Settings, error) {
	s := caption.Settings{
		MinSize:           c.MinSize,
		Margin:            c.Margin,
		AttributionHeight: c.AttributionHeight,
		Palette:           compose.DefaultPalette(),
	}
	if err := s.Validate(); err != nil {
		return caption.Settings{}, err
	}
	for _, entry := range []struct {
		key string
		hex string
		dst *color.Color
	}{
		{"palette.background", c.Palette.Background, &s.Palette.Background},
		{"palette.text", c.Palette.Text, &s.Palette.Text},
		{"palette.dark_background", c.Palette.DarkBackground, &s.Palette.DarkBackground},
		{"palette.dark_text", c.Palette.DarkText, &s.Palette.DarkText},
	} {
		if entry.hex == "" {
			continue
		}
		col, err := ParseColor(entry.hex)
		if err != nil {
			return caption.Settings{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", entry.key)
		}
		*entry.dst = col
	}
	return s.WithDefaults(), nil
}

// ParseColor parses "#rgb" or "#rrggbb" into an opaque colour.
func ParseColor(hex string) (color.Color, error) {
	if err := errors.ValidateHexColor(hex); err != nil {
		return nil, err
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "colour %q", hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// Profiles returns the built-in profiles merged with the configured ones.
func (c *Config) Profiles() (caption.ProfileSet, error) {
	set := caption.DefaultProfiles()
	for name, pc := range c.Overrides {
		name = strings.ToLower(strings.TrimSpace(name))
		p, ok := set[name]
		if !ok {
			p = caption.ProfileGeneral
			p.Name = name
		}
		if pc.ScaleFactor != 0 {
			p.FontScaleFactor = pc.ScaleFactor
		}
		if pc.Policy != "" {
			policy, err := layout.ParsePolicy(pc.Policy)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "profiles.%s.policy", name)
			}
			p.Policy = policy
		}
		if pc.Placement != "" {
			placement, err := compose.ParsePlacement(pc.Placement)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "profiles.%s.placement", name)
			}
			p.Placement = placement
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		set[name] = p
	}
	return set, nil
}

// LoadFont loads the configured font, or the built-in one when unset.
func (c *Config) LoadFont() (*fonts.Source, error) {
	return fonts.Load(c.Font)
}

// CacheOptions returns the options for cache.Open. The file backend uses
// CacheDir when no dir is configured.
func (c *Config) CacheOptions() (cache.Options, error) {
	opts := cache.Options{
		Backend:   c.Cache.Backend,
		Dir:       c.Cache.Dir,
		RedisAddr: c.Cache.RedisAddr,
		Password:  c.Cache.Password,
		DB:        c.Cache.DB,
	}
	if (opts.Backend == "" || opts.Backend == cache.BackendFile) && opts.Dir == "" {
		dir, err := CacheDir()
		if err != nil {
			return opts, err
		}
		opts.Dir = dir
	}
	return opts, nil
}

// Keyer returns the cache keyer, scoped to the configured namespace.
func (c *Config) Keyer() cache.Keyer {
	k := cache.NewDefaultKeyer()
	if c.Cache.Namespace != "" {
		k = cache.NewScopedKeyer(k, c.Cache.Namespace+":")
	}
	return k
}

// MaxUploadBytes is the server's upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// Apply copies the engine-level settings onto a runner.
func (c *Config) Apply(r *pipeline.Runner) error {
	s, err := c.Settings()
	if err != nil {
		return err
	}
	profiles, err := c.Profiles()
	if err != nil {
		return err
	}
	r.Settings = s
	r.Profiles = profiles
	r.AnimationTimeout = c.AnimationTimeout.Duration
	r.CacheTTL = c.Cache.TTL.Duration
	return nil
}
