package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/simobern/base/internal/query"
	"github.com/simobern/base/pkg/core"
)

// store keeps the documents of one collection in insertion order.
type store struct {
	docs  map[string]core.Document
	order []string
}

func newStore() *store {
	return &store{docs: make(map[string]core.Document)}
}

func (s *store) snapshot() []core.Document {
	out := make([]core.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

func (s *store) put(id string, doc core.Document) (created bool) {
	if _, exists := s.docs[id]; !exists {
		s.order = append(s.order, id)
		created = true
	}
	s.docs[id] = doc
	return created
}

func (s *store) delete(id string) {
	delete(s.docs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
}

// Collection is a handle on one collection of a memory Database.
type Collection struct {
	db   *Database
	name string
}

func (c *Collection) Name() string { return c.name }

// read runs fn on a snapshot of the collection under the read lock.
func (c *Collection) read(fn func(docs []core.Document) error) error {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	if c.db.closed {
		return core.ErrClosed
	}
	s, ok := c.db.colls[c.name]
	if !ok {
		return fn(nil)
	}
	return fn(s.snapshot())
}

// write runs fn on the collection store under the write lock, creating it.
func (c *Collection) write(fn func(s *store) error) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if c.db.closed {
		return core.ErrClosed
	}
	s, ok := c.db.colls[c.name]
	if !ok {
		s = newStore()
		c.db.colls[c.name] = s
	}
	return fn(s)
}

func (c *Collection) emit(t core.EventType, id string) {
	c.db.watchers.publish(core.Event{Type: t, Collection: c.name, ID: id, Timestamp: time.Now().Unix()})
}

func (c *Collection) Find(ctx context.Context, q core.Document, opts core.FindOptions) (core.ResultSet, error) {
	var out []core.Document
	err := c.read(func(docs []core.Document) error {
		var err error
		out, err = query.Find(docs, q, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.db.logger.Debug("memory find", "collection", c.name, "results", len(out))
	return core.NewSliceResultSet(out), nil
}

func (c *Collection) FindOne(ctx context.Context, q core.Document, fields core.Document) (core.Document, error) {
	rs, err := c.Find(ctx, q, core.FindOptions{Fields: fields, Limit: 1})
	if err != nil {
		return nil, err
	}
	defer rs.Close(ctx)
	if !rs.Next(ctx) {
		if err := rs.Err(); err != nil {
			return nil, err
		}
		return nil, core.ErrNotFound
	}
	return rs.Document(), nil
}

func (c *Collection) Insert(ctx context.Context, doc core.Document) error {
	id, ok := doc.ID()
	if !ok {
		return fmt.Errorf("insert into %s: %w", c.name, core.ErrMissingID)
	}
	err := c.write(func(s *store) error {
		if _, exists := s.docs[id]; exists {
			return fmt.Errorf("insert %s/%s: %w", c.name, id, core.ErrDuplicateID)
		}
		s.put(id, doc.Clone())
		return nil
	})
	if err != nil {
		return err
	}
	c.emit(core.EventCreate, id)
	return nil
}

func (c *Collection) Save(ctx context.Context, doc core.Document) error {
	id, ok := doc.ID()
	if !ok {
		return fmt.Errorf("save into %s: %w", c.name, core.ErrMissingID)
	}
	var created bool
	err := c.write(func(s *store) error {
		created = s.put(id, doc.Clone())
		return nil
	})
	if err != nil {
		return err
	}
	if created {
		c.emit(core.EventCreate, id)
	} else {
		c.emit(core.EventModify, id)
	}
	return nil
}

func (c *Collection) Update(ctx context.Context, q core.Document, doc core.Document, opts core.UpdateOptions) (int64, error) {
	var changed []string
	var upserted string
	err := c.write(func(s *store) error {
		matched, err := query.Filter(s.snapshot(), q)
		if err != nil {
			return err
		}
		if len(matched) > 1 && !opts.Multi {
			matched = matched[:1]
		}
		if len(matched) > 1 && !query.IsOperatorUpdate(doc) {
			return fmt.Errorf("%w: multi update requires update operators", query.ErrInvalid)
		}

		for _, old := range matched {
			id, _ := old.ID()
			next, err := query.Apply(old, doc)
			if err != nil {
				return err
			}
			s.put(id, next)
			changed = append(changed, id)
		}

		if len(matched) == 0 && opts.Upsert {
			next, err := query.Upsert(q, doc)
			if err != nil {
				return err
			}
			id, ok := next.ID()
			if !ok {
				id = c.db.ids.New()
				next[core.KeyID] = id
			}
			s.put(id, next)
			upserted = id
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range changed {
		c.emit(core.EventModify, id)
	}
	if upserted != "" {
		c.emit(core.EventCreate, upserted)
		return 1, nil
	}
	return int64(len(changed)), nil
}

func (c *Collection) Remove(ctx context.Context, q core.Document, opts core.RemoveOptions) (int64, error) {
	var removed []string
	err := c.write(func(s *store) error {
		matched, err := query.Filter(s.snapshot(), q)
		if err != nil {
			return err
		}
		if opts.JustOne && len(matched) > 1 {
			matched = matched[:1]
		}
		for _, d := range matched {
			id, _ := d.ID()
			s.delete(id)
			removed = append(removed, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, id := range removed {
		c.emit(core.EventDelete, id)
	}
	return int64(len(removed)), nil
}

func (c *Collection) Count(ctx context.Context, q core.Document) (int64, error) {
	var n int64
	err := c.read(func(docs []core.Document) error {
		matched, err := query.Filter(docs, q)
		n = int64(len(matched))
		return err
	})
	return n, err
}

func (c *Collection) Distinct(ctx context.Context, key string, q core.Document) (any, error) {
	var out []any
	err := c.read(func(docs []core.Document) error {
		matched, err := query.Filter(docs, q)
		if err != nil {
			return err
		}
		out = core.CloneValue(query.Distinct(matched, key)).([]any)
		return nil
	})
	return out, err
}

func (c *Collection) Aggregate(ctx context.Context, pipeline []core.Document) ([]core.Document, error) {
	var out []core.Document
	err := c.read(func(docs []core.Document) error {
		var err error
		out, err = query.Aggregate(docs, pipeline)
		return err
	})
	return out, err
}

var _ core.Collection = (*Collection)(nil)
