package model_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
)

func savedUser(t *testing.T, reg *model.Registry, id, name string) *User {
	t.Helper()
	u, err := model.New[*User](reg)
	require.NoError(t, err)
	require.NoError(t, u.SetID(id))
	require.NoError(t, u.Set("name", name))
	return u
}

func TestNewReference(t *testing.T) {
	reg := newRegistry()

	t.Run("requires identity", func(t *testing.T) {
		u, err := model.New[*User](reg)
		require.NoError(t, err)
		_, err = model.NewReference(u)
		assert.ErrorIs(t, err, model.ErrReferenceConstruction)
	})

	t.Run("requires collection", func(t *testing.T) {
		addr, err := model.New[*Address](reg)
		require.NoError(t, err)
		require.NoError(t, addr.SetID("a1"))
		_, err = addr.Reference()
		assert.ErrorIs(t, err, model.ErrReferenceConstruction)
	})

	t.Run("triple", func(t *testing.T) {
		ref, err := savedUser(t, reg, "u1", "ada").Reference()
		require.NoError(t, err)
		assert.Equal(t, core.Document{
			core.KeyRef:        true,
			core.KeyID:         "u1",
			core.KeyModel:      "User",
			core.KeyCollection: "users",
		}, ref.Document())
		assert.Equal(t, "User", ref.TypeName())
		assert.False(t, ref.Resolved())
	})
}

func TestReference_DocumentNeverFetches(t *testing.T) {
	reg := newRegistry()
	loader := &fakeLoader{docs: map[string]core.Document{}}

	target := savedUser(t, reg, "u2", "grace")
	model.Attach(target, loader)
	ref, err := target.Reference()
	require.NoError(t, err)

	owner := savedUser(t, reg, "u1", "ada")
	require.NoError(t, owner.Set("best", ref))
	require.NoError(t, owner.Set("friends", []any{ref, ref}))

	for range 10 {
		_ = ref.Document()
		_, err := owner.Document()
		require.NoError(t, err)
	}
	assert.Zero(t, loader.calls)
}

func TestReference_ResolveIsMemoized(t *testing.T) {
	reg := newRegistry()
	target := savedUser(t, reg, "u2", "grace")
	doc, err := target.Document()
	require.NoError(t, err)

	loader := &fakeLoader{docs: map[string]core.Document{"users/u2": doc}}
	model.Attach(target, loader)
	ref, err := target.Reference()
	require.NoError(t, err)

	ctx := context.Background()
	first, err := ref.Resolve(ctx)
	require.NoError(t, err)
	second, err := ref.Resolve(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, ref.Resolved())

	name, err := ref.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "grace", name)
	assert.Equal(t, 1, loader.calls)

	// Another reference to the same document fetches on its own.
	other, err := target.Reference()
	require.NoError(t, err)
	_, err = other.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestReference_Broken(t *testing.T) {
	var buf bytes.Buffer
	reg := model.NewRegistry(model.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, reg.RegisterEnum(Color))
	require.NoError(t, reg.Register(&User{}, &Address{}))

	loader := &fakeLoader{docs: map[string]core.Document{}}
	target := savedUser(t, reg, "gone", "x")
	model.Attach(target, loader)
	ref, err := target.Reference()
	require.NoError(t, err)

	m, err := ref.Resolve(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.Contains(t, buf.String(), "broken reference")

	v, err := ref.Get(context.Background(), "name")
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestReference_LoaderFailure(t *testing.T) {
	reg := newRegistry()
	boom := errors.New("connection reset")
	loader := &fakeLoader{err: boom}

	target := savedUser(t, reg, "u1", "ada")
	model.Attach(target, loader)
	ref, err := target.Reference()
	require.NoError(t, err)

	_, err = ref.Resolve(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ref.Resolved())
}

func TestReference_Detached(t *testing.T) {
	reg := newRegistry()
	ref, err := savedUser(t, reg, "u1", "ada").Reference()
	require.NoError(t, err)

	_, err = ref.Resolve(context.Background())
	assert.ErrorIs(t, err, model.ErrDetached)

	loader := &fakeLoader{docs: map[string]core.Document{
		"users/u1": {core.KeyModel: "User", core.KeyID: "u1", "name": "ada"},
	}}
	bound := ref.Bind(loader)
	m, err := bound.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", model.BaseOf(m).ID())
}

func TestReference_Immutable(t *testing.T) {
	reg := newRegistry()
	ref, err := savedUser(t, reg, "u1", "ada").Reference()
	require.NoError(t, err)
	assert.ErrorIs(t, ref.Set("name", "eve"), model.ErrImmutableReference)
}

func TestDecode_ReferencesStayLazy(t *testing.T) {
	reg := newRegistry()
	loader := &fakeLoader{docs: map[string]core.Document{
		"users/u2": {core.KeyModel: "User", core.KeyID: "u2", "name": "grace"},
	}}
	raw := core.Document{
		core.KeyModel: "User",
		core.KeyID:    "u1",
		"best": core.Document{
			core.KeyRef: true, core.KeyID: "u2", core.KeyModel: "User", core.KeyCollection: "users",
		},
	}

	m, err := reg.Decode(raw, loader)
	require.NoError(t, err)
	assert.Zero(t, loader.calls)

	best, err := model.Field[*model.Reference](m, "best")
	require.NoError(t, err)
	name, err := best.Get(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, "grace", name)
	assert.Equal(t, 1, loader.calls)
}
