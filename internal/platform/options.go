package platform

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
)

// options holds the internal configuration for a session.
type options struct {
	database       core.Database
	registry       *model.Registry
	logger         *slog.Logger
	adapter        string
	ids            core.IDGenerator
	readOnly       bool
	mustExist      bool
	format         string
	metrics        prometheus.Registerer
	errorHandler   func(error)
	connectTimeout time.Duration
}

// Option defines a functional option for configuring a session.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		connectTimeout: 10 * time.Second,
	}
}

// WithLogger sets the logger for the session and its adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAdapter selects the storage adapter by name ("memory", "fs" or "mongo").
// By default the adapter is inferred from the URI.
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithDatabase injects a ready core.Database (e.g. a test double). The URI
// and adapter options are then ignored.
func WithDatabase(db core.Database) Option {
	return func(o *options) {
		o.database = db
	}
}

// WithRegistry sets the model registry. Defaults to an empty registry.
func WithRegistry(reg *model.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithIDGenerator sets the generator for new identities.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Repository writes return core.ErrReadOnly.
// 2. The fs adapter does not create its directory and refuses writes.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithMustExist makes the fs adapter fail when its directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithFormat selects the fs adapter file format ("json" or "yaml").
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithMetrics instruments the database and registers its collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// WithWatcherErrorHandler registers a callback for errors raised while
// watching the fs adapter, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithConnectTimeout bounds connecting to a remote database.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}
