package base

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/simobern/base/internal/platform"
	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/store"
)

// --- Types ---

// Session binds a database to a model registry.
type Session = store.Session

// Repository is the untyped gateway for one model kind and collection.
type Repository = store.Repository

// Cursor is a lazy, single-pass sequence of models.
type Cursor = store.Cursor

// Document is a raw stored document.
type Document = core.Document

// --- Configuration ---

// Option defines a functional option for configuring a session.
type Option = platform.Option

// WithLogger sets the logger for the session and its adapter.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithAdapter selects the storage adapter by name ("memory", "fs" or "mongo").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithDatabase injects a ready database.
func WithDatabase(db core.Database) Option {
	return platform.WithDatabase(db)
}

// WithRegistry sets the model registry.
func WithRegistry(reg *model.Registry) Option {
	return platform.WithRegistry(reg)
}

// WithIDGenerator sets the generator for new identities.
func WithIDGenerator(g core.IDGenerator) Option {
	return platform.WithIDGenerator(g)
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist makes the fs adapter fail when its directory is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithFormat selects the fs adapter file format ("json" or "yaml").
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithMetrics instruments the database with Prometheus collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return platform.WithMetrics(reg)
}

// WithWatcherErrorHandler registers a callback for fs watch errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithConnectTimeout bounds connecting to a remote database.
func WithConnectTimeout(d time.Duration) Option {
	return platform.WithConnectTimeout(d)
}

// --- Factory ---

// New opens the database addressed by uri and returns a session over it.
func New(ctx context.Context, uri string, opts ...Option) (*Session, error) {
	return platform.New(ctx, uri, opts...)
}

// Open opens only the database addressed by uri, without a session.
func Open(ctx context.Context, uri string, opts ...Option) (core.Database, error) {
	return platform.Open(ctx, uri, opts...)
}

// NewRegistry creates an empty model registry.
func NewRegistry(opts ...model.RegistryOption) *model.Registry {
	return model.NewRegistry(opts...)
}

// --- Utils ---

// FindConfig looks upwards from startDir for a base.yaml config file.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}
