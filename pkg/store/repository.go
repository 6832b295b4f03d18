package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simobern/base/pkg/aggregation"
	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
)

// Repository is the gateway for one model kind and collection. It holds no
// per-operation state and may be shared between goroutines.
type Repository struct {
	session *Session
	kind    *model.Kind
	coll    core.Collection
}

func (r *Repository) Kind() *model.Kind  { return r.kind }
func (r *Repository) Collection() string { return r.coll.Name() }
func (r *Repository) Session() *Session  { return r.session }

// New returns a fresh instance of the repository kind.
func (r *Repository) New() model.Model {
	m := r.kind.New()
	model.Attach(m, r.session)
	return m
}

func (r *Repository) log(ctx context.Context) *slog.Logger {
	l := r.session.logger.With("collection", r.coll.Name(), "model", r.kind.Name)
	if id, ok := ctx.Value(core.RequestIDKey).(string); ok {
		l = l.With("request_id", id)
	}
	return l
}

func (r *Repository) readErr(ctx context.Context, op string, err error) error {
	r.log(ctx).Error("read failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s %s: %w", ErrRead, op, r.coll.Name(), err)
}

func (r *Repository) writeErr(ctx context.Context, op string, err error) error {
	r.log(ctx).Error("write failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s %s: %w", ErrWrite, op, r.coll.Name(), err)
}

// decode reconstructs a model of the repository kind from a raw document.
func (r *Repository) decode(doc core.Document) (model.Model, error) {
	m := r.kind.New()
	if err := r.session.registry.DecodeInto(m, doc, r.session); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureType fails when m is not of the repository kind.
func (r *Repository) ensureType(m model.Model) error {
	if m == nil {
		return fmt.Errorf("%w: nil model, expected %s", ErrTypeMismatch, r.kind.Name)
	}
	k, err := r.session.registry.KindOf(m)
	if err != nil || k != r.kind {
		return fmt.Errorf("%w: got %T, expected %s", ErrTypeMismatch, m, r.kind.Name)
	}
	if model.BaseOf(m).Kind() == nil {
		return fmt.Errorf("%w: %T", model.ErrUnbound, m)
	}
	return nil
}

func (r *Repository) checkWritable() error {
	if r.session.readOnly {
		return core.ErrReadOnly
	}
	return nil
}

// Find returns a lazy cursor. Nothing is read until it is iterated or counted.
func (r *Repository) Find(query, fields core.Document) *Cursor {
	return newCursor(r, query, fields)
}

// FindOne returns the first match, or nil when nothing matches.
func (r *Repository) FindOne(ctx context.Context, query, fields core.Document) (model.Model, error) {
	r.log(ctx).Debug("find one", "query", query)
	doc, err := r.coll.FindOne(ctx, query, fields)
	if errors.Is(err, core.ErrNotFound) || (err == nil && doc == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, r.readErr(ctx, "findOne", err)
	}
	m, err := r.decode(doc)
	if err != nil {
		return nil, r.readErr(ctx, "findOne", err)
	}
	return m, nil
}

// FindByID returns the model with the given identity, or nil.
func (r *Repository) FindByID(ctx context.Context, id string) (model.Model, error) {
	return r.FindOne(ctx, core.Document{core.KeyID: id}, nil)
}

// Count returns the number of documents matching query.
func (r *Repository) Count(ctx context.Context, query core.Document) (int64, error) {
	n, err := r.coll.Count(ctx, query)
	if err != nil {
		return 0, r.readErr(ctx, "count", err)
	}
	return n, nil
}

// Distinct returns the distinct values of key. A non-list result from the
// store yields an empty list.
func (r *Repository) Distinct(ctx context.Context, key string, query core.Document) ([]any, error) {
	v, err := r.coll.Distinct(ctx, key, query)
	if err != nil {
		return []any{}, r.readErr(ctx, "distinct", err)
	}
	list, ok := v.([]any)
	if !ok {
		return []any{}, nil
	}
	return list, nil
}

// Save persists m. A model without identity gets a new one and is inserted;
// a model with identity is written back in full. A failed insert leaves m
// without identity.
func (r *Repository) Save(ctx context.Context, m model.Model) error {
	if err := r.ensureType(m); err != nil {
		return err
	}
	if err := r.checkWritable(); err != nil {
		return err
	}

	b := model.BaseOf(m)
	if b.ID() != "" {
		doc, err := b.Document()
		if err != nil {
			return r.writeErr(ctx, "save", err)
		}
		r.log(ctx).Debug("update", "id", b.ID())
		if err := r.coll.Save(ctx, doc); err != nil {
			return r.writeErr(ctx, "save", err)
		}
		model.Attach(m, r.session)
		return nil
	}

	id := r.session.ids.New()
	if err := b.SetID(id); err != nil {
		return r.writeErr(ctx, "insert", err)
	}
	doc, err := b.Document()
	if err == nil {
		r.log(ctx).Debug("insert", "id", id)
		err = r.coll.Insert(ctx, doc)
	}
	if err != nil {
		_ = b.Unset(core.KeyID)
		return r.writeErr(ctx, "insert", err)
	}
	model.Attach(m, r.session)
	return nil
}

// Update passes query and doc through to the store.
func (r *Repository) Update(ctx context.Context, query, doc core.Document, opts core.UpdateOptions) (int64, error) {
	if err := r.checkWritable(); err != nil {
		return 0, err
	}
	n, err := r.coll.Update(ctx, query, doc, opts)
	if err != nil {
		return 0, r.writeErr(ctx, "update", err)
	}
	return n, nil
}

// Remove deletes the stored document of m.
func (r *Repository) Remove(ctx context.Context, m model.Model) error {
	if err := r.ensureType(m); err != nil {
		return err
	}
	b := model.BaseOf(m)
	if b.ID() == "" {
		return fmt.Errorf("%w: %w", ErrWrite, ErrNotPersisted)
	}
	_, err := r.RemoveWhere(ctx, core.Document{core.KeyID: b.IDValue()}, core.RemoveOptions{JustOne: true})
	return err
}

// RemoveWhere deletes documents matching query.
func (r *Repository) RemoveWhere(ctx context.Context, query core.Document, opts core.RemoveOptions) (int64, error) {
	if err := r.checkWritable(); err != nil {
		return 0, err
	}
	n, err := r.coll.Remove(ctx, query, opts)
	if err != nil {
		return 0, r.writeErr(ctx, "remove", err)
	}
	r.log(ctx).Debug("remove", "query", query, "removed", n)
	return n, nil
}

// RemoveByID deletes the document with the given identity.
func (r *Repository) RemoveByID(ctx context.Context, id string) (int64, error) {
	return r.RemoveWhere(ctx, core.Document{core.KeyID: id}, core.RemoveOptions{JustOne: true})
}

// Aggregate runs the builder's pipeline.
func (r *Repository) Aggregate(ctx context.Context, b *aggregation.Builder) ([]core.Document, error) {
	return r.AggregateStages(ctx, b.Pipeline())
}

// AggregateStages forwards raw pipeline stages to the store.
func (r *Repository) AggregateStages(ctx context.Context, pipeline []core.Document) ([]core.Document, error) {
	r.log(ctx).Debug("aggregate", "stages", len(pipeline))
	out, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, r.readErr(ctx, "aggregate", err)
	}
	return out, nil
}
