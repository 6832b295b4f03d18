package store_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simobern/base/pkg/adapters/memory"
	"github.com/simobern/base/pkg/aggregation"
	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/store"
)

func TestSave_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	u := f.user(t, "ada", 36)

	require.NoError(t, f.users.Save(ctx, u))
	assert.Equal(t, "id-1", u.ID())
	assert.Equal(t, 1, f.spy.count("insert"))
	assert.Equal(t, 0, f.spy.count("save"))

	require.NoError(t, u.Set("age", 37))
	require.NoError(t, f.users.Save(ctx, u))
	assert.Equal(t, "id-1", u.ID(), "identity is kept")
	assert.Equal(t, 1, f.spy.count("insert"), "an existing identity is never re-inserted")
	assert.Equal(t, 1, f.spy.count("save"))

	got, err := f.users.FindByID(ctx, "id-1")
	require.NoError(t, err)
	age, err := model.Field[int64](got, "age")
	require.NoError(t, err)
	assert.Equal(t, int64(37), age)

	n, err := f.users.Count(ctx, core.Document{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSave_FailedInsertRollsBackIdentity(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	boom := errors.New("disk full")
	f.spy.fail["insert"] = boom

	u := f.user(t, "ada", 36)
	err := f.users.Save(ctx, u)
	assert.ErrorIs(t, err, store.ErrWrite)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, u.ID())
	assert.False(t, u.Has("_id"))
}

func TestSave_EnsureType(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	p, err := model.New[*Post](f.reg)
	require.NoError(t, err)
	require.NoError(t, p.Set("title", "hello"))

	assert.ErrorIs(t, f.users.Save(ctx, p), store.ErrTypeMismatch)
	assert.ErrorIs(t, f.users.Remove(ctx, p), store.ErrTypeMismatch)
	assert.ErrorIs(t, f.users.Save(ctx, nil), store.ErrTypeMismatch)
	assert.ErrorIs(t, f.users.Save(ctx, &User{}), model.ErrUnbound)
	assert.Zero(t, f.spy.count("insert"))
}

func TestReadOnlySession(t *testing.T) {
	ctx := context.Background()
	f := setup(t, store.WithReadOnly(true))

	assert.ErrorIs(t, f.users.Save(ctx, f.user(t, "ada", 1)), core.ErrReadOnly)
	_, err := f.users.Update(ctx, core.Document{}, core.Document{"$set": core.Document{"a": 1}}, core.UpdateOptions{})
	assert.ErrorIs(t, err, core.ErrReadOnly)
	_, err = f.users.RemoveWhere(ctx, core.Document{}, core.RemoveOptions{})
	assert.ErrorIs(t, err, core.ErrReadOnly)

	state := f.sess.State().(store.SessionState)
	assert.True(t, state.ReadOnly)
	assert.Equal(t, []string{"Address", "Post", "User"}, state.Models)
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.users.Save(ctx, f.user(t, "ada", 36)))

	m, err := f.users.FindOne(ctx, core.Document{"name": "ada"}, nil)
	require.NoError(t, err)
	require.IsType(t, &User{}, m)
	assert.Same(t, f.sess, model.LoaderOf(m), "decoded models resolve through the session")

	m, err = f.users.FindOne(ctx, core.Document{"name": "nobody"}, nil)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestReadFailuresAreLoggedAndWrapped(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	f := setup(t, store.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	boom := errors.New("connection refused")
	for _, op := range []string{"findOne", "count", "distinct", "aggregate", "find"} {
		f.spy.fail[op] = boom
	}

	m, err := f.users.FindOne(ctx, core.Document{}, nil)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, store.ErrRead)
	assert.ErrorIs(t, err, boom)

	n, err := f.users.Count(ctx, core.Document{})
	assert.Zero(t, n)
	assert.ErrorIs(t, err, store.ErrRead)

	vals, err := f.users.Distinct(ctx, "name", nil)
	assert.Equal(t, []any{}, vals)
	assert.ErrorIs(t, err, store.ErrRead)

	out, err := f.users.Aggregate(ctx, aggregation.New().Limit(1))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, store.ErrRead)

	models, err := f.users.Find(nil, nil).Collect(ctx)
	assert.Empty(t, models)
	assert.ErrorIs(t, err, store.ErrRead)

	assert.Contains(t, buf.String(), "read failed")
	assert.Contains(t, buf.String(), "collection=users")
}

func TestDistinct(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, name := range []string{"ada", "bob", "ada"} {
		require.NoError(t, f.users.Save(ctx, f.user(t, name, 1)))
	}

	vals, err := f.users.Distinct(ctx, "name", core.Document{})
	require.NoError(t, err)
	assert.Equal(t, []any{"ada", "bob"}, vals)
}

type scalarDistinct struct{ core.Database }

func (d scalarDistinct) Collection(name string) core.Collection {
	return scalarColl{d.Database.Collection(name)}
}

type scalarColl struct{ core.Collection }

func (scalarColl) Distinct(context.Context, string, core.Document) (any, error) {
	return "not a list", nil
}

func TestDistinct_NonListIsEmpty(t *testing.T) {
	reg := model.NewRegistry()
	require.NoError(t, reg.Register(&User{}, &Address{}))
	sess := store.NewSession(scalarDistinct{memory.New()}, reg)
	users, err := sess.Repository(&User{})
	require.NoError(t, err)

	vals, err := users.Distinct(context.Background(), "name", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, vals)
}

func TestUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ada := f.user(t, "ada", 36)
	require.NoError(t, f.users.Save(ctx, ada))
	require.NoError(t, f.users.Save(ctx, f.user(t, "bob", 20)))
	require.NoError(t, f.users.Save(ctx, f.user(t, "eve", 20)))

	n, err := f.users.Update(ctx, core.Document{"age": 20}, core.Document{"$inc": core.Document{"age": 1}}, core.UpdateOptions{Multi: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, f.users.Remove(ctx, ada))
	gone, err := f.users.FindByID(ctx, ada.ID())
	require.NoError(t, err)
	assert.Nil(t, gone)

	unsaved := f.user(t, "zoe", 1)
	assert.ErrorIs(t, f.users.Remove(ctx, unsaved), store.ErrNotPersisted)

	n, err = f.users.RemoveByID(ctx, "id-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.users.RemoveWhere(ctx, core.Document{}, core.RemoveOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, u := range []struct {
		name string
		age  int
	}{{"ada", 36}, {"bob", 20}, {"eve", 20}} {
		require.NoError(t, f.users.Save(ctx, f.user(t, u.name, u.age)))
	}

	out, err := f.users.Aggregate(ctx, aggregation.New().
		Group(core.Document{"_id": "$age", "n": aggregation.Sum(1)}).
		Sort(core.D{{Key: "n", Value: -1}}))
	require.NoError(t, err)
	assert.Equal(t, []core.Document{{"_id": int64(20), "n": int64(2)}, {"_id": int64(36), "n": int64(1)}}, out)
}

func TestReferencesThroughSession(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	ada := f.user(t, "ada", 36)
	require.NoError(t, f.users.Save(ctx, ada))
	ref, err := ada.Reference()
	require.NoError(t, err)

	post, err := model.New[*Post](f.reg)
	require.NoError(t, err)
	require.NoError(t, post.Set("title", "notes"))
	require.NoError(t, post.Set("author", ref))
	require.NoError(t, f.posts.Save(ctx, post))

	before := f.spy.count("findOne")
	got, err := f.posts.FindByID(ctx, post.ID())
	require.NoError(t, err)
	afterLoad := f.spy.count("findOne")
	assert.Equal(t, before+1, afterLoad)

	for range 3 {
		_, err := model.BaseOf(got).Document()
		require.NoError(t, err)
	}
	assert.Equal(t, afterLoad, f.spy.count("findOne"), "serializing never resolves references")

	author, err := model.Field[*model.Reference](got, "author")
	require.NoError(t, err)
	name, err := author.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "ada", name)
	_, err = author.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, afterLoad+1, f.spy.count("findOne"))

	require.NoError(t, f.users.Remove(ctx, ada))
	orphan, err := f.posts.FindByID(ctx, post.ID())
	require.NoError(t, err)
	author, err = model.Field[*model.Reference](orphan, "author")
	require.NoError(t, err)
	target, err := author.Resolve(ctx)
	assert.NoError(t, err)
	assert.Nil(t, target, "broken references resolve to nothing")
}

func TestMapReduce(t *testing.T) {
	ctx := context.Background()
	var got core.D
	result := core.Document{"ok": 1.0, "results": []any{core.Document{"_id": "ada", "value": 2}}}
	db := memory.New(memory.WithCommand("mapreduce", func(_ context.Context, _ *memory.Database, cmd core.D) (core.Document, error) {
		got = cmd
		return result, nil
	}))
	reg := model.NewRegistry()
	require.NoError(t, reg.Register(&User{}, &Address{}))
	users, err := store.NewSession(db, reg).Repository(&User{})
	require.NoError(t, err)

	fns := fstest.MapFS{
		"mongo_functions/map.js":    {Data: []byte("function() { emit(this.name, 1); }")},
		"mongo_functions/reduce.js": {Data: []byte("function(k, v) { return Array.sum(v); }")},
	}
	mapFn, err := store.LoadCode(fns, "mongo_functions/map", nil)
	require.NoError(t, err)
	reduceFn, err := store.LoadCode(fns, "mongo_functions/reduce", core.Document{"factor": 2})
	require.NoError(t, err)
	_, err = store.LoadCode(fns, "mongo_functions/missing", nil)
	assert.Error(t, err)

	t.Run("default command", func(t *testing.T) {
		res, err := users.MapReduce(ctx, mapFn, reduceFn, core.Document{"age": 20}, nil)
		require.NoError(t, err)
		assert.Equal(t, result, res)
		assert.Equal(t, core.D{
			{Key: "mapreduce", Value: "users"},
			{Key: "map", Value: mapFn},
			{Key: "reduce", Value: reduceFn},
			{Key: "out", Value: core.Document{"inline": 1}},
			{Key: "query", Value: core.Document{"age": 20}},
		}, got)
	})

	t.Run("config replaces defaults", func(t *testing.T) {
		config := core.D{{Key: "mapreduce", Value: "archive"}, {Key: "map", Value: mapFn}, {Key: "reduce", Value: reduceFn}}
		_, err := users.MapReduce(ctx, mapFn, reduceFn, core.Document{"age": 20}, config)
		require.NoError(t, err)
		assert.Equal(t, append(config, core.E{Key: "out", Value: core.Document{"inline": 1}}), got)
	})

	t.Run("not ok yields nil", func(t *testing.T) {
		result = core.Document{"ok": 0.0, "errmsg": "boom"}
		res, err := users.MapReduce(ctx, mapFn, reduceFn, nil, nil)
		assert.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestMapReduce_UnsupportedIsNil(t *testing.T) {
	f := setup(t)
	res, err := f.users.MapReduce(context.Background(), core.Code{}, core.Code{}, nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestMapReduceCommand(t *testing.T) {
	mapFn := core.Code{Source: "function() { emit(this.name, 1); }"}
	reduceFn := core.Code{Source: "function(k, v) { return Array.sum(v); }"}
	inline := core.E{Key: "out", Value: core.Document{"inline": 1}}

	tests := []struct {
		name   string
		query  core.Document
		config core.D
		want   core.D
	}{
		{
			name: "no query",
			want: core.D{{Key: "mapreduce", Value: "users"}, {Key: "map", Value: mapFn}, {Key: "reduce", Value: reduceFn}, inline},
		},
		{
			name:  "with query",
			query: core.Document{"age": 20},
			want: core.D{
				{Key: "mapreduce", Value: "users"}, {Key: "map", Value: mapFn}, {Key: "reduce", Value: reduceFn}, inline,
				{Key: "query", Value: core.Document{"age": 20}},
			},
		},
		{
			name:   "config keeps its own out",
			query:  core.Document{"age": 20},
			config: core.D{{Key: "mapreduce", Value: "archive"}, {Key: "out", Value: "totals"}},
			want:   core.D{{Key: "mapreduce", Value: "archive"}, {Key: "out", Value: "totals"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.MapReduceCommand("users", mapFn, reduceFn, tt.query, tt.config))
		})
	}
}

func TestRepositoryFor_RequiresCollection(t *testing.T) {
	f := setup(t)
	_, err := f.sess.Repository(&Address{})
	assert.Error(t, err)

	r, err := f.sess.Repository(&Address{}, "addresses")
	require.NoError(t, err)
	assert.Equal(t, "addresses", r.Collection())
}
