package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/store"
)

func seed(t *testing.T, f *fixture, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, f.users.Save(context.Background(), f.user(t, fmt.Sprintf("u%02d", i), i)))
	}
}

func names(t *testing.T, models []model.Model) []string {
	t.Helper()
	out := make([]string, 0, len(models))
	for _, m := range models {
		name, err := model.Field[string](m, "name")
		require.NoError(t, err)
		out = append(out, name)
	}
	return out
}

func TestCursor_IsLazy(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 3)

	c := f.users.Find(core.Document{}, nil).Sort(core.D{{Key: "age", Value: -1}}).Limit(2)
	assert.Zero(t, f.spy.count("find"), "building a cursor reads nothing")

	models, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.spy.count("find"))
	assert.Equal(t, []string{"u02", "u01"}, names(t, models))
}

func TestCursor_NextPage(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 5)

	tests := []struct {
		name  string
		skip  int64
		limit int64
		want  int64
		more  bool
	}{
		{"no limit", 0, 0, 0, false},
		{"more than limit", 0, 2, 1, true},
		{"second page", 1, 2, 2, true},
		{"exactly limit", 0, 5, 0, false},
		{"above count", 0, 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.users.Find(nil, nil).Skip(tt.skip).Limit(tt.limit)
			next, ok := c.NextPage(ctx)
			assert.Equal(t, tt.more, ok)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestCursor_CountIsCached(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 3)

	c := f.users.Find(core.Document{"age": core.Document{"$gte": 1}}, nil).Limit(1)
	for range 3 {
		n, err := c.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	}
	assert.Equal(t, 1, f.spy.count("count"))
}

func TestCursor_SinglePass(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 3)

	c := f.users.Find(nil, nil)
	require.True(t, c.Next(ctx))
	require.NotNil(t, c.Model())

	var errs []error
	for m, err := range c.All(ctx) {
		assert.Nil(t, m)
		errs = append(errs, err)
	}
	assert.Equal(t, []error{store.ErrCursorConsumed}, errs)
	assert.ErrorIs(t, c.Err(), store.ErrCursorConsumed)

	c = f.users.Find(nil, nil)
	models, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 3)
	assert.False(t, c.Next(ctx), "an exhausted cursor stays exhausted")
	_, err = c.Collect(ctx)
	assert.ErrorIs(t, err, store.ErrCursorConsumed)
}

func TestCursor_ChainingAfterStartIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 3)

	c := f.users.Find(nil, nil).Sort(core.D{{Key: "age", Value: 1}})
	require.True(t, c.Next(ctx))
	c.Limit(1)

	got := []model.Model{c.Model()}
	for c.Next(ctx) {
		got = append(got, c.Model())
	}
	require.NoError(t, c.Err())
	assert.Equal(t, []string{"u00", "u01", "u02"}, names(t, got))
}

func TestCursor_EarlyBreakCloses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 3)

	c := f.users.Find(nil, nil)
	for m, err := range c.All(ctx) {
		require.NoError(t, err)
		require.NotNil(t, m)
		break
	}
	assert.False(t, c.Next(ctx))
	assert.Nil(t, c.Model())
}

func TestCursor_Projection(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f, 1)

	models, err := f.users.Find(nil, core.Document{"name": 1}).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.True(t, model.BaseOf(models[0]).Has("name"))
	assert.False(t, model.BaseOf(models[0]).Has("age"))
	assert.Equal(t, "id-1", model.BaseOf(models[0]).ID())
}
