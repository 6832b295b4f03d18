package typed

import (
	"context"
	"fmt"

	"github.com/simobern/base/pkg/aggregation"
	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/store"
)

// Repository wraps a store.Repository to return concrete model types.
type Repository[T model.Model] struct {
	repo *store.Repository
}

// NewRepository creates a typed view of repo. It fails when T is not the
// kind repo serves.
func NewRepository[T model.Model](repo *store.Repository) (*Repository[T], error) {
	if err := checkKind[T](repo.Session().Registry(), repo.Kind()); err != nil {
		return nil, err
	}
	return &Repository[T]{repo: repo}, nil
}

// Open returns the repository of T, which must already be registered with
// the session registry.
func Open[T model.Model](s *store.Session, collection ...string) (*Repository[T], error) {
	var zero T
	k, err := s.Registry().KindOf(zero)
	if err != nil {
		return nil, err
	}
	repo, err := s.RepositoryFor(k, collection...)
	if err != nil {
		return nil, err
	}
	return &Repository[T]{repo: repo}, nil
}

func checkKind[T model.Model](reg *model.Registry, k *model.Kind) error {
	var zero T
	got, err := reg.KindOf(zero)
	if err != nil {
		return err
	}
	if got != k {
		return fmt.Errorf("%w: %s repository cannot serve %s", store.ErrTypeMismatch, k.Name, got.Name)
	}
	return nil
}

// Untyped returns the wrapped repository.
func (r *Repository[T]) Untyped() *store.Repository { return r.repo }

// New returns a fresh, bound instance.
func (r *Repository[T]) New() T {
	return r.repo.New().(T)
}

// Find returns a lazy typed cursor.
func (r *Repository[T]) Find(query, fields core.Document) *Cursor[T] {
	return &Cursor[T]{Cursor: r.repo.Find(query, fields)}
}

// FindOne returns the first match. ok is false when nothing matches.
func (r *Repository[T]) FindOne(ctx context.Context, query, fields core.Document) (T, bool, error) {
	return cast[T](r.repo.FindOne(ctx, query, fields))
}

// FindByID returns the model with the given identity. ok is false when it
// does not exist.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	return cast[T](r.repo.FindByID(ctx, id))
}

func (r *Repository[T]) Count(ctx context.Context, query core.Document) (int64, error) {
	return r.repo.Count(ctx, query)
}

func (r *Repository[T]) Distinct(ctx context.Context, key string, query core.Document) ([]any, error) {
	return r.repo.Distinct(ctx, key, query)
}

func (r *Repository[T]) Save(ctx context.Context, m T) error {
	return r.repo.Save(ctx, m)
}

func (r *Repository[T]) Remove(ctx context.Context, m T) error {
	return r.repo.Remove(ctx, m)
}

func (r *Repository[T]) Update(ctx context.Context, query, doc core.Document, opts core.UpdateOptions) (int64, error) {
	return r.repo.Update(ctx, query, doc, opts)
}

func (r *Repository[T]) RemoveWhere(ctx context.Context, query core.Document, opts core.RemoveOptions) (int64, error) {
	return r.repo.RemoveWhere(ctx, query, opts)
}

func (r *Repository[T]) Aggregate(ctx context.Context, b *aggregation.Builder) ([]core.Document, error) {
	return r.repo.Aggregate(ctx, b)
}

func cast[T model.Model](m model.Model, err error) (T, bool, error) {
	var zero T
	if err != nil || m == nil {
		return zero, false, err
	}
	t, ok := m.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: got %T", store.ErrTypeMismatch, m)
	}
	return t, true, nil
}
