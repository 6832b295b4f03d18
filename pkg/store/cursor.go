package store

import (
	"context"
	"iter"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
)

// Cursor is a lazy, forward-only, single-pass sequence of models. Sort, Skip
// and Limit only apply before the first read; re-run the query to restart.
type Cursor struct {
	repo   *Repository
	query  core.Document
	fields core.Document
	sort   core.D
	skip   int64
	limit  int64

	rs      core.ResultSet
	current model.Model
	count   int64
	counted bool
	started bool
	done    bool
	err     error
}

func newCursor(r *Repository, query, fields core.Document) *Cursor {
	if query == nil {
		query = core.Document{}
	}
	return &Cursor{repo: r, query: query, fields: fields}
}

func (c *Cursor) Sort(spec core.D) *Cursor {
	if !c.started {
		c.sort = spec
	}
	return c
}

func (c *Cursor) Skip(n int64) *Cursor {
	if !c.started {
		c.skip = n
	}
	return c
}

func (c *Cursor) Limit(n int64) *Cursor {
	if !c.started {
		c.limit = n
	}
	return c
}

// Count returns the number of documents matching the query, ignoring skip
// and limit. The value is fetched once and cached.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	if c.counted {
		return c.count, nil
	}
	n, err := c.repo.Count(ctx, c.query)
	if err != nil {
		return 0, err
	}
	c.count, c.counted = n, true
	return n, nil
}

// NextPage returns skip+1 when more documents match than the limit allows.
// A cursor without a limit has no further pages.
func (c *Cursor) NextPage(ctx context.Context) (int64, bool) {
	if c.limit <= 0 {
		return 0, false
	}
	n, err := c.Count(ctx)
	if err != nil || n <= c.limit {
		return 0, false
	}
	return c.skip + 1, true
}

func (c *Cursor) open(ctx context.Context) bool {
	c.started = true
	c.repo.log(ctx).Debug("find", "query", c.query, "skip", c.skip, "limit", c.limit)
	rs, err := c.repo.coll.Find(ctx, c.query, core.FindOptions{
		Fields: c.fields,
		Sort:   c.sort,
		Skip:   c.skip,
		Limit:  c.limit,
	})
	if err != nil {
		c.err = c.repo.readErr(ctx, "find", err)
		c.done = true
		return false
	}
	c.rs = rs
	return true
}

// Next advances to the next model. It returns false at the end of the
// results or on error; check Err afterwards.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.done {
		return false
	}
	if !c.started && !c.open(ctx) {
		return false
	}
	if !c.rs.Next(ctx) {
		if err := c.rs.Err(); err != nil {
			c.err = c.repo.readErr(ctx, "find", err)
		}
		c.finish(ctx)
		return false
	}
	m, err := c.repo.decode(c.rs.Document())
	if err != nil {
		c.err = c.repo.readErr(ctx, "find", err)
		c.finish(ctx)
		return false
	}
	c.current = m
	return true
}

func (c *Cursor) finish(ctx context.Context) {
	c.done = true
	c.current = nil
	if c.rs != nil {
		_ = c.rs.Close(ctx)
	}
}

// Model returns the model produced by the last call to Next.
func (c *Cursor) Model() model.Model { return c.current }

func (c *Cursor) Err() error { return c.err }

// Close releases the result set. The cursor cannot be iterated afterwards.
func (c *Cursor) Close(ctx context.Context) error {
	c.started = true
	if !c.done {
		c.finish(ctx)
	}
	return nil
}

// All iterates the remaining models. A cursor that was already read from
// yields a single ErrCursorConsumed.
func (c *Cursor) All(ctx context.Context) iter.Seq2[model.Model, error] {
	return func(yield func(model.Model, error) bool) {
		if c.started {
			c.err = ErrCursorConsumed
			yield(nil, ErrCursorConsumed)
			return
		}
		defer c.Close(ctx)
		for c.Next(ctx) {
			if !yield(c.current, nil) {
				return
			}
		}
		if c.err != nil {
			yield(nil, c.err)
		}
	}
}

// Collect reads every remaining model into a slice.
func (c *Cursor) Collect(ctx context.Context) ([]model.Model, error) {
	var out []model.Model
	for m, err := range c.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}
