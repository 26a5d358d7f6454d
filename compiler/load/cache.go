package load

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores parsed file descriptors between runs, keyed by the source
// content hash, so unchanged files are neither re-parsed nor re-emitted.
// A miss is (nil, nil); cache failures are never fatal to a load.
type Cache interface {
	// Get retrieves a descriptor. Returns nil, nil if the key is absent.
	Get(key string) (*File, error)

	// Set stores a descriptor under the key.
	Set(key string, f *File) error

	// Delete removes a single entry.
	Delete(key string) error

	// Clear removes all entries.
	Clear() error
}

// DirCache is a directory-backed Cache. Entries are msgpack-encoded file
// descriptors, one file per key.
type DirCache struct {
	dir string
}

// NewDirCache opens (creating if needed) a cache directory.
func NewDirCache(dir string) (*DirCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("load: open cache: %w", err)
	}
	return &DirCache{dir: dir}, nil
}

// Get implements Cache.
func (c *DirCache) Get(key string) (*File, error) {
	buf, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f := &File{}
	if err := msgpack.Unmarshal(buf, f); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		return nil, nil
	}
	return f, nil
}

// Set implements Cache.
func (c *DirCache) Set(key string, f *File) error {
	buf, err := msgpack.Marshal(f)
	if err != nil {
		return fmt.Errorf("load: encode cache entry: %w", err)
	}
	return os.WriteFile(c.path(key), buf, 0o644)
}

// Delete implements Cache.
func (c *DirCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear implements Cache.
func (c *DirCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".msgpack" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *DirCache) path(key string) string {
	return filepath.Join(c.dir, key+".msgpack")
}
