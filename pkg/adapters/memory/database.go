// Package memory provides an in-memory document database. It is the default
// adapter and the test double for everything above the core ports.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/simobern/base/internal/query"
	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/idgen"
)

// CommandFunc handles a database command for the memory adapter.
type CommandFunc func(ctx context.Context, db *Database, cmd core.D) (core.Document, error)

// Database is an in-memory implementation of core.Database.
type Database struct {
	mu       sync.RWMutex
	colls    map[string]*store
	closed   bool
	logger   *slog.Logger
	ids      core.IDGenerator
	commands map[string]CommandFunc
	watchers *hub
}

// Option configures the memory database.
type Option func(*Database)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) {
		db.logger = logger
	}
}

// WithIDGenerator sets the generator used for upserted documents without an _id.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(db *Database) {
		db.ids = g
	}
}

// WithCommand registers a handler for a database command name.
func WithCommand(name string, fn CommandFunc) Option {
	return func(db *Database) {
		db.commands[name] = fn
	}
}

// New creates an empty database.
func New(opts ...Option) *Database {
	db := &Database{
		colls:    make(map[string]*store),
		logger:   slog.Default(),
		ids:      idgen.NewULID(),
		watchers: newHub(),
	}
	db.commands = map[string]CommandFunc{
		"ping":  pingCommand,
		"count": countCommand,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Collection returns a handle on the named collection.
func (db *Database) Collection(name string) core.Collection {
	return &Collection{db: db, name: name}
}

// Collections returns the names of collections holding documents.
func (db *Database) Collections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.colls))
	for name, s := range db.colls {
		if len(s.order) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Command dispatches cmd by its first key.
func (db *Database) Command(ctx context.Context, cmd core.D) (core.Document, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("%w: empty command", query.ErrInvalid)
	}
	if err := db.check(); err != nil {
		return nil, err
	}
	fn, ok := db.commands[cmd[0].Key]
	if !ok {
		return nil, fmt.Errorf("command %s: %w", cmd[0].Key, core.ErrUnsupported)
	}
	return fn(ctx, db, cmd)
}

// Close drops all data and stops watchers.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	db.colls = make(map[string]*store)
	db.watchers.close()
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

func pingCommand(context.Context, *Database, core.D) (core.Document, error) {
	return core.Document{"ok": 1.0}, nil
}

func countCommand(ctx context.Context, db *Database, cmd core.D) (core.Document, error) {
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

var _ core.Database = (*Database)(nil)
