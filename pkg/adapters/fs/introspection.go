package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// DatabaseState exposes internal state for observability.
type DatabaseState struct {
	Path          string     `json:"path"`
	Format        string     `json:"format"`
	ReadOnly      bool       `json:"read_only"`
	Closed        bool       `json:"closed"`
	Collections   []string   `json:"collections"`
	CacheSize     int        `json:"cache_size"`
	CacheHits     int64      `json:"cache_hits"`
	CacheMisses   int64      `json:"cache_misses"`
	Watchers      int        `json:"watchers"`
	LastEventTime *time.Time `json:"last_event,omitempty"`
}

// State implements introspection.Introspectable.
func (db *Database) State() any {
	collections, _ := db.Collections()
	hits, misses := db.cache.Stats()

	db.mu.RLock()
	defer db.mu.RUnlock()
	return DatabaseState{
		Path:          db.Path,
		Format:        db.serializer.Ext()[1:],
		ReadOnly:      db.config.ReadOnly,
		Closed:        db.closed,
		Collections:   collections,
		CacheSize:     db.cache.Len(),
		CacheHits:     hits,
		CacheMisses:   misses,
		Watchers:      db.watchers,
		LastEventTime: db.lastSeen,
	}
}

// ComponentType implements introspection.Component.
func (db *Database) ComponentType() string {
	return "fs-database"
}

var _ introspection.Introspectable = (*Database)(nil)
var _ introspection.Component = (*Database)(nil)

func (db *Database) setWatching(delta int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.watchers += delta
}

func (db *Database) recordEvent() {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now()
	db.lastSeen = &now
}
