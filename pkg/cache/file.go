package cache

import (
	"context"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// entryExt marks cache entry files.
const entryExt = ".entry"

// FileCache stores each entry as one file: an 8-byte big-endian expiry
// (unix nanoseconds, 0 for none) followed by the raw bytes. Entries are
// spread over 256 subdirectories by key hash.
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir is the cache root.
func (c *FileCache) Dir() string { return c.dir }

// Get reads an entry. Corrupt and expired entries are removed and reported
// as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < 8 {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if exp := int64(binary.BigEndian.Uint64(raw[:8])); exp != 0 && time.Now().UnixNano() > exp {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return raw[8:], true, nil
}

// Set writes an entry atomically.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	buf := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(buf[:8], uint64(exp))
	copy(buf[8:], data)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes an entry.
func (c *FileCache) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for file cache.
func (c *FileCache) Close() error { return nil }

// Stats counts entries and their total size on disk.
func (c *FileCache) Stats() (entries int, bytes int64, err error) {
	err = filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, entryExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries++
		bytes += info.Size()
		return nil
	})
	return entries, bytes, err
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	subdirs, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, sub := range subdirs {
		if !sub.IsDir() || len(sub.Name()) != 2 {
			continue
		}
		subdir := filepath.Join(c.dir, sub.Name())
		files, err := os.ReadDir(subdir)
		if err != nil {
			return removed, err
		}
		for _, f := range files {
			if strings.HasSuffix(f.Name(), entryExt) {
				removed++
			}
		}
		if err := os.RemoveAll(subdir); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+entryExt)
}

var _ Cache = (*FileCache)(nil)
