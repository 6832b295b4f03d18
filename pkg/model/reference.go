package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/simobern/base/pkg/core"
)

// Reference is an immutable lazy pointer to a persisted model. The target is
// fetched on first resolution and cached on this instance only; two
// references to the same document resolve independently.
type Reference struct {
	model      string
	collection string
	id         string

	registry *Registry
	loader   Loader
	target   Model
}

// NewReference creates a reference to m. It fails when m has no identity or
// its kind declares no collection.
func NewReference(m Model) (*Reference, error) {
	return newReference(m.base())
}

func newReference(b *Base) (*Reference, error) {
	if b.kind == nil {
		return nil, ErrUnbound
	}
	id := b.ID()
	if id == "" {
		return nil, fmt.Errorf("%w: %s has no identity", ErrReferenceConstruction, b.kind.Name)
	}
	if b.kind.Collection == "" {
		return nil, fmt.Errorf("%w: %s has no collection", ErrReferenceConstruction, b.kind.Name)
	}
	return &Reference{
		model:      b.kind.Name,
		collection: b.kind.Collection,
		id:         id,
		registry:   b.kind.registry,
		loader:     b.loader,
	}, nil
}

// TypeName returns the target model name, so a reference satisfies fields
// declared with the target's type.
func (r *Reference) TypeName() string   { return r.model }
func (r *Reference) ID() string         { return r.id }
func (r *Reference) Collection() string { return r.collection }

// Resolved reports whether the target has been fetched.
func (r *Reference) Resolved() bool { return r.target != nil }

// Bind returns a copy of the reference using l to fetch its target.
func (r *Reference) Bind(l Loader) *Reference {
	c := *r
	c.loader = l
	c.target = nil
	return &c
}

// Resolve returns the target model, fetching it on first use. A missing
// target is a broken reference: it is logged and yields (nil, nil).
func (r *Reference) Resolve(ctx context.Context) (Model, error) {
	if r.target != nil {
		return r.target, nil
	}
	if r.loader == nil {
		return nil, fmt.Errorf("%s %s/%s: %w", r.model, r.collection, r.id, ErrDetached)
	}

	logger := r.registry.Logger()
	doc, err := r.loader.Load(ctx, r.collection, r.id)
	if errors.Is(err, core.ErrNotFound) || (err == nil && doc == nil) {
		logger.Warn("broken reference", "collection", r.collection, "id", r.id, "model", r.model)
		return nil, nil
	}
	if err != nil {
		logger.Error("failed to resolve reference", "collection", r.collection, "id", r.id, "error", err)
		return nil, fmt.Errorf("resolve %s/%s: %w", r.collection, r.id, err)
	}

	k, err := r.registry.Kind(r.model)
	if err != nil {
		return nil, err
	}
	m, err := r.registry.decodeKind(k, doc, r.loader)
	if err != nil {
		return nil, err
	}
	r.target = m
	return m, nil
}

// Get reads a field of the target. A broken reference yields (nil, nil).
func (r *Reference) Get(ctx context.Context, field string) (any, error) {
	m, err := r.Resolve(ctx)
	if err != nil || m == nil {
		return nil, err
	}
	return m.base().Get(field)
}

// Set always fails: references are immutable.
func (r *Reference) Set(field string, _ any) error {
	return fmt.Errorf("%w: %s", ErrImmutableReference, field)
}

// Document returns the reference triple. It never resolves the target.
func (r *Reference) Document() core.Document {
	return core.Document{
		core.KeyRef:        true,
		core.KeyID:         r.id,
		core.KeyModel:      r.model,
		core.KeyCollection: r.collection,
	}
}

func (r *Reference) String() string {
	return fmt.Sprintf("%s(%s/%s)", r.model, r.collection, r.id)
}
