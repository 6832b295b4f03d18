package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/idgen"
)

// ErrInvalidName is returned for collection names and ids that cannot be
// used as file names.
var ErrInvalidName = errors.New("invalid name")

// Database implements core.Database on a directory tree: one directory per
// collection and one file per document, named after its "_id".
type Database struct {
	Path string

	config     Config
	serializer Serializer
	cache      *cache

	mu       sync.RWMutex
	closed   bool
	watchers int
	lastSeen *time.Time
}

// Config holds the configuration for the filesystem database.
type Config struct {
	Path      string
	Format    string // "json" (default) or "yaml"
	MustExist bool
	ReadOnly  bool
	Logger    *slog.Logger
	// IDGenerator names documents created by upserts. Defaults to ULIDs.
	IDGenerator core.IDGenerator
	// ErrorHandler receives asynchronous watch errors. Defaults to logging.
	ErrorHandler func(error)
}

// New creates a database rooted at config.Path. Call Initialize before use.
func New(config Config) (*Database, error) {
	s, err := SerializerFor(config.Format)
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewULID()
	}
	return &Database{
		Path:       config.Path,
		config:     config,
		serializer: s,
		cache:      newCache(),
	}, nil
}

// Initialize creates the root directory, or checks it when MustExist is set.
func (db *Database) Initialize(ctx context.Context) error {
	if db.config.MustExist || db.config.ReadOnly {
		info, err := os.Stat(db.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("database path does not exist: %s", db.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("database path is not a directory: %s", db.Path)
		}
		return nil
	}
	if err := os.MkdirAll(db.Path, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// Collection returns a handle on the named collection.
func (db *Database) Collection(name string) core.Collection {
	return &Collection{db: db, name: name}
}

// Collections lists collection directories.
func (db *Database) Collections() ([]string, error) {
	entries, err := os.ReadDir(db.Path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && checkName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Command supports "ping" and "count".
func (db *Database) Command(ctx context.Context, cmd core.D) (core.Document, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty command: %w", core.ErrUnsupported)
	}
	if err := db.check(); err != nil {
		return nil, err
	}
	switch cmd[0].Key {
	case "ping":
		return core.Document{"ok": 1.0}, nil
	case "count":
		name, _ := cmd[0].Value.(string)
		q := core.Document{}
		if v, ok := cmd.Get("query"); ok {
			if d, isDoc := core.AsDocument(v); isDoc {
				q = d
			}
		}
		n, err := db.Collection(name).Count(ctx, q)
		if err != nil {
			return nil, err
		}
		return core.Document{"n": n, "ok": 1.0}, nil
	}
	return nil, fmt.Errorf("command %s: %w", cmd[0].Key, core.ErrUnsupported)
}

// Close drops the cache. Files are left in place.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	db.cache.Reset()
	return nil
}

func (db *Database) check() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return core.ErrClosed
	}
	return nil
}

// checkName rejects names that would escape or hide inside the tree.
func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (db *Database) dir(collection string) string {
	return filepath.Join(db.Path, collection)
}

func (db *Database) file(collection, id string) string {
	return filepath.Join(db.Path, collection, id+db.serializer.Ext())
}

// resolve maps a file path inside the tree to its collection and id.
func (db *Database) resolve(path string) (collection, id string, ok bool) {
	rel, err := filepath.Rel(db.Path, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || isTempFile(parts[1]) || filepath.Ext(parts[1]) != db.serializer.Ext() {
		return "", "", false
	}
	collection, id = parts[0], strings.TrimSuffix(parts[1], db.serializer.Ext())
	if checkName(collection) != nil || checkName(id) != nil {
		return "", "", false
	}
	return collection, id, true
}

var _ core.Database = (*Database)(nil)
