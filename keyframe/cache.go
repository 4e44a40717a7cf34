package keyframe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/keycut/types"
)

// Identity names one version of a file on disk. A file rewritten in place
// changes size or modification time and so gets a new identity.
type Identity struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
}

// Identify stats path and returns its identity.
func Identify(path string) (Identity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Identity{}, err
	}
	if info.IsDir() {
		return Identity{}, fmt.Errorf("%s is a directory", abs)
	}
	return Identity{Path: abs, Size: info.Size(), ModTime: info.ModTime().UnixNano()}, nil
}

// Entry is what the index keeps for a whole file.
type Entry struct {
	Keyframes   Sequence
	Duration    types.Timestamp
	HasDuration bool
}

// Cache is a process-scoped, concurrency-safe map of whole-file entries.
// A nil *Cache is a valid, always-empty cache.
type Cache struct {
	mu      sync.Mutex
	entries map[Identity]Entry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Identity]Entry)}
}

// Get returns the entry stored for id.
func (c *Cache) Get(id Identity) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// Put stores e for id, replacing any entry for an older version of the
// same path.
func (c *Cache) Put(id Identity, e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for old := range c.entries {
		if old.Path == id.Path {
			delete(c.entries, old)
		}
	}
	c.entries[id] = e
}

// Invalidate drops every entry for path.
func (c *Cache) Invalidate(path string) {
	if c == nil {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		if id.Path == abs {
			delete(c.entries, id)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
