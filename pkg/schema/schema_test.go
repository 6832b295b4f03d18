package schema_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simobern/base/pkg/schema"
)

type named string

func (n named) TypeName() string { return string(n) }

func TestType_CheckPrimitives(t *testing.T) {
	tests := []struct {
		name  string
		typ   *schema.Type
		value any
		ok    bool
	}{
		{"int accepts int", schema.Int(), 42, true},
		{"int accepts int64", schema.Int(), int64(42), true},
		{"int rejects float", schema.Int(), 1.0, false},
		{"int rejects string", schema.Int(), "1", false},
		{"float accepts float32", schema.Float(), float32(1.5), true},
		{"float accepts float64", schema.Float(), 1.5, true},
		{"float rejects int", schema.Float(), 1, false},
		{"double accepts float64", schema.Double(), 1.5, true},
		{"double rejects float32", schema.Double(), float32(1.5), false},
		{"string", schema.String(), "x", true},
		{"string rejects bytes", schema.String(), []byte("x"), false},
		{"bool", schema.Bool(), false, true},
		{"bool rejects int", schema.Bool(), 0, false},
		{"any accepts anything", schema.Any(), struct{}{}, true},
		{"id accepts string", schema.ID(), "abc", true},
		{"id rejects empty", schema.ID(), "", false},
		{"id accepts string kinds", schema.ID(), named("65a1"), true},
		{"time", schema.Time(), time.Now(), true},
		{"time rejects string", schema.Time(), "2024-01-01", false},
		{"model by name", schema.Model("Address"), named("Address"), true},
		{"model wrong name", schema.Model("Address"), named("User"), false},
		{"model rejects map", schema.Model("Address"), map[string]any{}, false},
		{"enum by name", schema.Enum("Color"), named("Color"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Check(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, schema.ErrValidation)
			}
		})
	}
}

func TestType_CheckNull(t *testing.T) {
	tests := []struct {
		name string
		typ  func() *schema.Type
	}{
		{"int", schema.Int},
		{"string", schema.String},
		{"bool", schema.Bool},
		{"float", schema.Float},
		{"double", schema.Double},
		{"any", schema.Any},
		{"id", schema.ID},
		{"time", schema.Time},
		{"model", func() *schema.Type { return schema.Model("Address") }},
		{"enum", func() *schema.Type { return schema.Enum("Color") }},
	}

	var ptr *time.Time
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.typ().Check(nil), schema.ErrValidation)
			assert.ErrorIs(t, tt.typ().Check(ptr), schema.ErrValidation, "typed nil is null")
			assert.NoError(t, tt.typ().Nullable().Check(nil))
			assert.NoError(t, tt.typ().Nullable().Check(ptr))
		})
	}
}

func TestType_CheckArray(t *testing.T) {
	ints := schema.Int().Array()

	assert.NoError(t, ints.Check([]any{1, 2, 3}))
	assert.NoError(t, ints.Check([]int{}))
	assert.ErrorIs(t, ints.Check(1), schema.ErrValidation)

	err := ints.Check([]any{1, "two", 3.0})
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Index, "first failing element is reported")

	assert.Error(t, ints.Check([]any{1, nil}))
	assert.NoError(t, schema.Int().Array().Nullable().Check([]any{1, nil}))
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "int", schema.Int().String())
	assert.Equal(t, "[]Address?", schema.Model("Address").Array().Nullable().String())
	assert.Equal(t, "Address", schema.Model("Address").Array().Element().String())
}

func TestDeclaration_Build(t *testing.T) {
	d := schema.NewDeclaration("User")
	d.Field("name", schema.String()).
		Field("age", schema.Int().Nullable()).
		Field("tags", schema.String().Array())

	s, err := d.Build()
	require.NoError(t, err)

	assert.Equal(t, "User", s.Model())
	assert.Equal(t, []string{"name", "age", "tags"}, s.Names())
	assert.True(t, s.Has("age"))
	assert.False(t, s.Has("email"))

	typ, ok := s.Field("tags")
	require.True(t, ok)
	assert.True(t, typ.IsArray())

	_, err = s.Lookup("email")
	assert.ErrorIs(t, err, schema.ErrSchema)
}

func TestDeclaration_Errors(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		d := schema.NewDeclaration("User")
		d.Field("name", schema.String()).Field("name", schema.Int())
		_, err := d.Build()
		assert.ErrorIs(t, err, schema.ErrSchema)
	})

	t.Run("reserved", func(t *testing.T) {
		for _, key := range []string{"__model", "__ref", "__collection"} {
			d := schema.NewDeclaration("User")
			d.Field(key, schema.String())
			_, err := d.Build()
			assert.ErrorIs(t, err, schema.ErrSchema, key)
		}
	})

	t.Run("custom kind without name", func(t *testing.T) {
		d := schema.NewDeclaration("User")
		d.Field("addr", schema.Model(""))
		_, err := d.Build()
		assert.ErrorIs(t, err, schema.ErrSchema)
	})
}

func TestAnnotate(t *testing.T) {
	err := schema.Annotate(schema.Int().Check("x"), "User", "age")
	assert.Contains(t, err.Error(), "User.age")
	assert.Contains(t, err.Error(), "expected int")
}
