package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/simobern/base/internal/query"
	"github.com/simobern/base/pkg/core"
)

// Collection is a directory of document files.
type Collection struct {
	db   *Database
	name string
}

func (c *Collection) Name() string { return c.name }

// load parses every document file of the collection in file name order.
// Unchanged files are served from the cache.
func (c *Collection) load(ctx context.Context) ([]core.Document, error) {
	if err := checkName(c.name); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(c.db.dir(c.name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", c.name, err)
	}

	ext := c.db.serializer.Ext()
	docs := make([]core.Document, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || isTempFile(e.Name()) || filepath.Ext(e.Name()) != ext {
			continue
		}
		doc, err := c.read(e)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *Collection) read(e os.DirEntry) (core.Document, error) {
	rel := c.name + "/" + e.Name()
	info, err := e.Info()
	if err != nil {
		return nil, err
	}
	if doc, ok := c.db.cache.Get(rel, info.ModTime(), info.Size()); ok {
		return doc, nil
	}

	data, err := os.ReadFile(filepath.Join(c.db.dir(c.name), e.Name()))
	if err != nil {
		return nil, err
	}
	doc, err := c.db.serializer.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rel, err)
	}
	if _, ok := doc.ID(); !ok {
		doc[core.KeyID] = e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))]
	}
	c.db.cache.Set(rel, doc, info.ModTime(), info.Size())
	return doc, nil
}

// view runs fn on the collection documents under the read lock.
func (c *Collection) view(ctx context.Context, fn func(docs []core.Document) error) error {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	if c.db.closed {
		return core.ErrClosed
	}
	docs, err := c.load(ctx)
	if err != nil {
		return err
	}
	return fn(docs)
}

// update runs fn under the write lock.
func (c *Collection) update(ctx context.Context, fn func(docs []core.Document) error) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if c.db.closed {
		return core.ErrClosed
	}
	if c.db.config.ReadOnly {
		return core.ErrReadOnly
	}
	docs, err := c.load(ctx)
	if err != nil {
		return err
	}
	return fn(docs)
}

func (c *Collection) write(doc core.Document) error {
	id, ok := doc.ID()
	if !ok {
		return fmt.Errorf("write into %s: %w", c.name, core.ErrMissingID)
	}
	if err := checkName(id); err != nil {
		return err
	}
	data, err := c.db.serializer.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serialize %s/%s: %w", c.name, id, err)
	}
	if err := os.MkdirAll(c.db.dir(c.name), 0755); err != nil {
		return fmt.Errorf("create collection %s: %w", c.name, err)
	}
	c.db.config.Logger.Debug("fs write", "collection", c.name, "id", id)
	c.db.cache.Delete(c.name + "/" + id + c.db.serializer.Ext())
	return writeFileAtomic(c.db.file(c.name, id), data, 0644)
}

func (c *Collection) delete(id string) (bool, error) {
	c.db.cache.Delete(c.name + "/" + id + c.db.serializer.Ext())
	return removeFile(c.db.file(c.name, id))
}

func (c *Collection) exists(id string) bool {
	_, err := os.Stat(c.db.file(c.name, id))
	return err == nil
}

func (c *Collection) Find(ctx context.Context, q core.Document, opts core.FindOptions) (core.ResultSet, error) {
	var out []core.Document
	err := c.view(ctx, func(docs []core.Document) error {
		var err error
		out, err = query.Find(docs, q, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
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
	return c.update(ctx, func([]core.Document) error {
		id, ok := doc.ID()
		if !ok {
			return fmt.Errorf("insert into %s: %w", c.name, core.ErrMissingID)
		}
		if c.exists(id) {
			return fmt.Errorf("insert %s/%s: %w", c.name, id, core.ErrDuplicateID)
		}
		return c.write(doc)
	})
}

func (c *Collection) Save(ctx context.Context, doc core.Document) error {
	return c.update(ctx, func([]core.Document) error {
		return c.write(doc)
	})
}

func (c *Collection) Update(ctx context.Context, q core.Document, doc core.Document, opts core.UpdateOptions) (int64, error) {
	var n int64
	err := c.update(ctx, func(docs []core.Document) error {
		matched, err := query.Filter(docs, q)
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
			next, err := query.Apply(old, doc)
			if err != nil {
				return err
			}
			if err := c.write(next); err != nil {
				return err
			}
			n++
		}

		if len(matched) == 0 && opts.Upsert {
			next, err := query.Upsert(q, doc)
			if err != nil {
				return err
			}
			if _, ok := next.ID(); !ok {
				next[core.KeyID] = c.db.config.IDGenerator.New()
			}
			n = 1
			return c.write(next)
		}
		return nil
	})
	return n, err
}

func (c *Collection) Remove(ctx context.Context, q core.Document, opts core.RemoveOptions) (int64, error) {
	var n int64
	err := c.update(ctx, func(docs []core.Document) error {
		matched, err := query.Filter(docs, q)
		if err != nil {
			return err
		}
		if opts.JustOne && len(matched) > 1 {
			matched = matched[:1]
		}
		for _, d := range matched {
			id, _ := d.ID()
			removed, err := c.delete(id)
			if err != nil {
				return err
			}
			if removed {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (c *Collection) Count(ctx context.Context, q core.Document) (int64, error) {
	var n int64
	err := c.view(ctx, func(docs []core.Document) error {
		matched, err := query.Filter(docs, q)
		n = int64(len(matched))
		return err
	})
	return n, err
}

func (c *Collection) Distinct(ctx context.Context, key string, q core.Document) (any, error) {
	var out []any
	err := c.view(ctx, func(docs []core.Document) error {
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
	err := c.view(ctx, func(docs []core.Document) error {
		var err error
		out, err = query.Aggregate(docs, pipeline)
		return err
	})
	return out, err
}

var _ core.Collection = (*Collection)(nil)
