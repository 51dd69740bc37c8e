package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/captioner/pkg/cache"
)

// isolate points config and cache lookups at fresh temp directories.
func isolate(t *testing.T) (configHome, cacheHome string) {
	t.Helper()
	configHome, cacheHome = t.TempDir(), t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	return configHome, cacheHome
}

func TestCacheClear(t *testing.T) {
	_, cacheHome := isolate(t)
	dir := filepath.Join(cacheHome, appName)
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := fc.Set(ctx, key, []byte(key), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	entries, _, err := fc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if entries != 0 {
		t.Errorf("entries after clear = %d, want 0", entries)
	}
}

func TestCacheNoneBackend(t *testing.T) {
	configHome, _ := isolate(t)
	path := filepath.Join(configHome, appName, "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"none\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	store, opts, err := c.openConfiguredCache(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if opts.Backend != cache.BackendNone {
		t.Errorf("Backend = %q", opts.Backend)
	}
	if _, ok := store.(cache.NullCache); !ok {
		t.Errorf("store = %T, want cache.NullCache", store)
	}
}

func TestCacheInvalidConfig(t *testing.T) {
	isolate(t)
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[cache]\nbackend = \"floppy\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", bad, "cache", "path"})
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Error("cache path with an invalid config should fail")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{2048, "2.0 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
