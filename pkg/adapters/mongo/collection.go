package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/simobern/base/internal/query"
	"github.com/simobern/base/pkg/core"
)

// Collection implements core.Collection on a MongoDB collection.
type Collection struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

func (c *Collection) Name() string { return c.coll.Name() }

func filter(q core.Document) any {
	if q == nil {
		return bson.M{}
	}
	m := toBSON(q).(bson.M)
	if id, ok := q[core.KeyID]; ok {
		m[core.KeyID] = idValue(id)
	}
	return m
}

func (c *Collection) Find(ctx context.Context, q core.Document, opts core.FindOptions) (core.ResultSet, error) {
	fo := options.Find()
	if len(opts.Fields) > 0 {
		fo.SetProjection(toBSON(opts.Fields))
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(toBSON(opts.Sort))
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	cur, err := c.coll.Find(ctx, filter(q), fo)
	if err != nil {
		return nil, err
	}
	return &resultSet{cur: cur}, nil
}

func (c *Collection) FindOne(ctx context.Context, q core.Document, fields core.Document) (core.Document, error) {
	fo := options.FindOne()
	if len(fields) > 0 {
		fo.SetProjection(toBSON(fields))
	}
	var raw bson.M
	err := c.coll.FindOne(ctx, filter(q), fo).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDocument(raw), nil
}

func (c *Collection) Insert(ctx context.Context, doc core.Document) error {
	if _, ok := doc.ID(); !ok {
		return fmt.Errorf("insert into %s: %w", c.Name(), core.ErrMissingID)
	}
	_, err := c.coll.InsertOne(ctx, toBSON(doc))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert into %s: %w: %w", c.Name(), core.ErrDuplicateID, err)
	}
	return err
}

func (c *Collection) Save(ctx context.Context, doc core.Document) error {
	if _, ok := doc.ID(); !ok {
		return fmt.Errorf("save into %s: %w", c.Name(), core.ErrMissingID)
	}
	_, err := c.coll.ReplaceOne(ctx, bson.M{core.KeyID: toBSON(doc[core.KeyID])}, toBSON(doc), options.Replace().SetUpsert(true))
	return err
}

func (c *Collection) Update(ctx context.Context, q core.Document, doc core.Document, opts core.UpdateOptions) (int64, error) {
	var (
		res *mongo.UpdateResult
		err error
	)
	switch {
	case !query.IsOperatorUpdate(doc):
		if opts.Multi {
			return 0, fmt.Errorf("%w: multi update requires update operators", query.ErrInvalid)
		}
		res, err = c.coll.ReplaceOne(ctx, filter(q), toBSON(doc), options.Replace().SetUpsert(opts.Upsert))
	case opts.Multi:
		res, err = c.coll.UpdateMany(ctx, filter(q), toBSON(doc), options.UpdateMany().SetUpsert(opts.Upsert))
	default:
		res, err = c.coll.UpdateOne(ctx, filter(q), toBSON(doc), options.UpdateOne().SetUpsert(opts.Upsert))
	}
	if err != nil {
		return 0, err
	}
	return res.MatchedCount + res.UpsertedCount, nil
}

func (c *Collection) Remove(ctx context.Context, q core.Document, opts core.RemoveOptions) (int64, error) {
	var (
		res *mongo.DeleteResult
		err error
	)
	if opts.JustOne {
		res, err = c.coll.DeleteOne(ctx, filter(q))
	} else {
		res, err = c.coll.DeleteMany(ctx, filter(q))
	}
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) Count(ctx context.Context, q core.Document) (int64, error) {
	return c.coll.CountDocuments(ctx, filter(q))
}

func (c *Collection) Distinct(ctx context.Context, key string, q core.Document) (any, error) {
	res := c.coll.Distinct(ctx, key, filter(q))
	if err := res.Err(); err != nil {
		return nil, err
	}
	var values bson.A
	if err := res.Decode(&values); err != nil {
		return nil, err
	}
	return fromBSON(values), nil
}

func (c *Collection) Aggregate(ctx context.Context, pipeline []core.Document) ([]core.Document, error) {
	stages := make(bson.A, len(pipeline))
	for i, stage := range pipeline {
		stages[i] = toBSON(stage)
	}
	cur, err := c.coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]core.Document, len(raw))
	for i, m := range raw {
		out[i] = toDocument(m)
	}
	c.logger.Debug("mongo aggregate", "collection", c.Name(), "stages", len(pipeline), "results", len(out))
	return out, nil
}

// resultSet streams documents from a driver cursor.
type resultSet struct {
	cur *mongo.Cursor
	doc core.Document
	err error
}

func (r *resultSet) Next(ctx context.Context) bool {
	r.doc = nil
	if !r.cur.Next(ctx) {
		r.err = r.cur.Err()
		return false
	}
	var raw bson.M
	if err := r.cur.Decode(&raw); err != nil {
		r.err = err
		return false
	}
	r.doc = toDocument(raw)
	return true
}

func (r *resultSet) Document() core.Document { return r.doc }
func (r *resultSet) Err() error              { return r.err }

func (r *resultSet) Close(ctx context.Context) error {
	return r.cur.Close(ctx)
}

var (
	_ core.Collection = (*Collection)(nil)
	_ core.ResultSet  = (*resultSet)(nil)
)
