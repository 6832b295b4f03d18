package platform

import (
	"context"

	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/store"
)

// New opens the database addressed by uri and returns a session over it.
//
//	sess, err := base.New(ctx, "mongodb://localhost/app", base.WithRegistry(reg))
//
// The URI is adapter-specific: a mongodb:// connection string, a directory
// for "fs", or "memory://" (also the default for an empty URI).
func New(ctx context.Context, uri string, opts ...Option) (*store.Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	db, err := open(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	sessOpts := []store.Option{store.WithReadOnly(o.readOnly)}
	var regOpts []model.RegistryOption
	if o.logger != nil {
		sessOpts = append(sessOpts, store.WithLogger(o.logger))
		regOpts = append(regOpts, model.WithLogger(o.logger))
	}
	if o.ids != nil {
		sessOpts = append(sessOpts, store.WithIDGenerator(o.ids))
	}
	if o.registry == nil {
		o.registry = model.NewRegistry(regOpts...)
	}
	return store.NewSession(db, o.registry, sessOpts...), nil
}
