package fs

import (
	"sync"
	"time"

	"github.com/simobern/base/pkg/core"
)

// cacheEntry is a parsed document and the file state it was parsed from.
type cacheEntry struct {
	Doc          core.Document
	Size         int64
	LastModified time.Time
}

// cache keeps parsed documents keyed by relative path (e.g. "users/01H.json").
// Entries are trusted only while the file mtime and size are unchanged.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

// Get returns the cached document if it is fresh.
func (c *cache) Get(relPath string, mtime time.Time, size int64) (core.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) || entry.Size != size {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.Doc, true
}

// Set updates an entry in the cache.
func (c *cache) Set(relPath string, doc core.Document, mtime time.Time, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relPath] = &cacheEntry{Doc: doc, Size: size, LastModified: mtime}
}

// Delete removes a single entry from the cache.
func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, relPath)
}

// Prune removes entries that are not in the keep set.
func (c *cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path := range c.entries {
		if !keep[path] {
			delete(c.entries, path)
		}
	}
}

// Reset drops every entry.
func (c *cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
