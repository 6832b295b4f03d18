package typed

import (
	"context"
	"iter"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/store"
)

// Cursor is a store.Cursor that yields T.
type Cursor[T any] struct {
	*store.Cursor
}

func (c *Cursor[T]) Sort(spec core.D) *Cursor[T] {
	c.Cursor.Sort(spec)
	return c
}

func (c *Cursor[T]) Skip(n int64) *Cursor[T] {
	c.Cursor.Skip(n)
	return c
}

func (c *Cursor[T]) Limit(n int64) *Cursor[T] {
	c.Cursor.Limit(n)
	return c
}

// Model returns the current model, or the zero T before the first Next.
func (c *Cursor[T]) Model() T {
	t, _ := c.Cursor.Model().(T)
	return t
}

// All iterates the remaining models.
func (c *Cursor[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for m, err := range c.Cursor.All(ctx) {
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(m.(T), nil) {
				return
			}
		}
	}
}

// Collect reads every remaining model into a slice.
func (c *Cursor[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for m, err := range c.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}
