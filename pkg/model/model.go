package model

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/schema"
)

// Model is a typed document entity. Implementations embed Base and declare
// their fields in DeclareTypes.
type Model interface {
	DeclareTypes(d *schema.Declaration)
	base() *Base
}

// Collector is implemented by models persisted in their own collection.
// Models without a collection can only be embedded.
type Collector interface {
	Collection() string
}

// Namer overrides the registered type name, which defaults to the struct name.
type Namer interface {
	ModelName() string
}

// Initializer is called after every construction, once the model is bound.
type Initializer interface {
	Init()
}

// Loader fetches a raw document by identity. It is the store handle injected
// into references.
type Loader interface {
	Load(ctx context.Context, collection, id string) (core.Document, error)
}

// Base holds the per-instance field values of a model.
type Base struct {
	kind   *Kind
	values map[string]any
	loader Loader
}

func (b *Base) base() *Base { return b }

func (b *Base) bind(k *Kind) {
	b.kind = k
	b.values = make(map[string]any, k.Schema.Len())
}

func (b *Base) lookup(name string) (schema.Type, error) {
	if b.kind == nil {
		return schema.Type{}, ErrUnbound
	}
	return b.kind.Schema.Lookup(name)
}

// Kind returns the registered kind, or nil for an unbound model.
func (b *Base) Kind() *Kind { return b.kind }

// TypeName returns the registered model name.
func (b *Base) TypeName() string {
	if b.kind == nil {
		return ""
	}
	return b.kind.Name
}

// Get returns the value of a declared field. Fields never set yield nil.
func (b *Base) Get(name string) (any, error) {
	if _, err := b.lookup(name); err != nil {
		return nil, err
	}
	return b.values[name], nil
}

// Set validates value against the declared type and stores it. Array values
// are stored as []any and int fields as int64.
func (b *Base) Set(name string, value any) error {
	t, err := b.lookup(name)
	if err != nil {
		return err
	}
	if err := t.Check(value); err != nil {
		return schema.Annotate(err, b.kind.Name, name)
	}
	switch {
	case schema.IsNull(value):
		value = nil
	case t.IsArray():
		l := toList(value)
		if t.Kind() == schema.KindInt {
			for i, e := range l {
				l[i] = toInt64(e)
			}
		}
		value = l
	case t.Kind() == schema.KindInt:
		value = toInt64(value)
	}
	b.values[name] = value
	return nil
}

// toInt64 widens Go integers to int64. uint64 values above the int64 range
// are kept as they are.
func toInt64(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n)
		}
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	}
	return v
}

// Has reports whether the field holds a value, including an explicit nil.
func (b *Base) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Unset removes the value of a declared field.
func (b *Base) Unset(name string) error {
	if _, err := b.lookup(name); err != nil {
		return err
	}
	delete(b.values, name)
	return nil
}

// IsEmpty reports whether no field has been set.
func (b *Base) IsEmpty() bool { return len(b.values) == 0 }

// ID returns the identity, or "" for a model that was never persisted.
func (b *Base) ID() string {
	return core.IDString(b.values[core.KeyID])
}

// IDValue returns the identity as stored, keeping store-native id types
// such as core.ObjectID.
func (b *Base) IDValue() any {
	return b.values[core.KeyID]
}

// SetID assigns the identity.
func (b *Base) SetID(id string) error {
	return b.Set(core.KeyID, id)
}

// Document serializes the model. An entity without values yields an empty,
// non-nil document; otherwise the document carries the __model tag.
func (b *Base) Document() (core.Document, error) {
	if b.kind == nil {
		return nil, ErrUnbound
	}
	if len(b.values) == 0 {
		return core.Document{}, nil
	}
	doc := make(core.Document, len(b.values)+1)
	doc[core.KeyModel] = b.kind.Name
	for k, v := range b.values {
		enc, err := encode(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", b.kind.Name, k, err)
		}
		doc[k] = enc
	}
	return doc, nil
}

// Reference creates a lazy pointer to this model.
func (b *Base) Reference() (*Reference, error) {
	return newReference(b)
}

func encode(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case *Reference:
		return v.Document(), nil
	case *EnumValue:
		return v.Value(), nil
	case Model:
		return v.base().Document()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			enc, err := encode(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	}
	return v, nil
}

func toList(v any) []any {
	if l, ok := v.([]any); ok {
		return append([]any(nil), l...)
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		e := rv.Index(i).Interface()
		if schema.IsNull(e) {
			e = nil
		}
		out[i] = e
	}
	return out
}

// Field returns a declared field value converted to T. Unset or nil fields
// yield the zero value.
func Field[T any](m Model, name string) (T, error) {
	var zero T
	v, err := m.base().Get(name)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s: %w: holds %T", m.base().TypeName(), name, schema.ErrValidation, v)
	}
	return t, nil
}

// Attach sets the Loader used by references created from m.
func Attach(m Model, l Loader) {
	m.base().loader = l
}

// LoaderOf returns the Loader attached to m, if any.
func LoaderOf(m Model) Loader {
	return m.base().loader
}

// BaseOf exposes the Base of a model.
func BaseOf(m Model) *Base {
	return m.base()
}
