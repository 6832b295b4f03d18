package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/aretw0/introspection"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/idgen"
	"github.com/simobern/base/pkg/model"
)

// Session binds a database to a model registry. It is safe for concurrent
// use when the database is.
type Session struct {
	db       core.Database
	registry *model.Registry
	logger   *slog.Logger
	ids      core.IDGenerator
	readOnly bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithIDGenerator sets the generator used for new identities.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(readOnly bool) Option {
	return func(s *Session) {
		s.readOnly = readOnly
	}
}

// NewSession creates a session over db.
func NewSession(db core.Database, reg *model.Registry, opts ...Option) *Session {
	s := &Session{
		db:       db,
		registry: reg,
		logger:   slog.Default(),
		ids:      idgen.NewULID(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Database() core.Database       { return s.db }
func (s *Session) Registry() *model.Registry     { return s.registry }
func (s *Session) Logger() *slog.Logger          { return s.logger }
func (s *Session) IDGenerator() core.IDGenerator { return s.ids }
func (s *Session) IsReadOnly() bool              { return s.readOnly }

// Load implements model.Loader.
func (s *Session) Load(ctx context.Context, collection, id string) (core.Document, error) {
	s.logger.Debug("load reference", "collection", collection, "id", id)
	return s.db.Collection(collection).FindOne(ctx, core.Document{core.KeyID: id}, nil)
}

// Repository returns a repository for proto's kind. The collection defaults
// to the one declared by the kind.
func (s *Session) Repository(proto model.Model, collection ...string) (*Repository, error) {
	k, err := s.registry.KindOf(proto)
	if err != nil {
		return nil, err
	}
	return s.RepositoryFor(k, collection...)
}

// RepositoryFor returns a repository for a registered kind.
func (s *Session) RepositoryFor(k *model.Kind, collection ...string) (*Repository, error) {
	name := k.Collection
	if len(collection) > 0 && collection[0] != "" {
		name = collection[0]
	}
	if name == "" {
		return nil, fmt.Errorf("collection or model not provided: %s declares no collection", k.Name)
	}
	return &Repository{session: s, kind: k, coll: s.db.Collection(name)}, nil
}

// Close closes the underlying database.
func (s *Session) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

// SessionState exposes session configuration for observability.
type SessionState struct {
	Adapter  string   `json:"adapter"`
	Models   []string `json:"models"`
	ReadOnly bool     `json:"read_only"`
	Database any      `json:"database,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Session) State() any {
	st := SessionState{
		Adapter:  reflect.TypeOf(s.db).String(),
		Models:   s.registry.Names(),
		ReadOnly: s.readOnly,
	}
	if i, ok := s.db.(introspection.Introspectable); ok {
		st.Database = i.State()
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Session) ComponentType() string {
	return "session"
}

var (
	_ model.Loader                 = (*Session)(nil)
	_ introspection.Introspectable = (*Session)(nil)
	_ introspection.Component      = (*Session)(nil)
)
