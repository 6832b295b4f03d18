package model

import (
	"fmt"
	"math"
	"reflect"
)

// EnumMember is one key/value pair of an enum.
type EnumMember struct {
	Key   string
	Value any
}

// Member is shorthand for an EnumMember literal.
func Member(key string, value any) EnumMember {
	return EnumMember{Key: key, Value: value}
}

// Enum is a named set of scalar constants. Enum fields serialize to the
// member value and reconstruct through FromValue.
type Enum struct {
	name    string
	members []*EnumValue
	byKey   map[string]*EnumValue
}

// NewEnum builds an enum. Keys must be unique and values must be comparable scalars.
func NewEnum(name string, members ...EnumMember) (*Enum, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: enum without a name", ErrInvalidModel)
	}
	e := &Enum{name: name, byKey: make(map[string]*EnumValue, len(members))}
	for _, m := range members {
		if _, dup := e.byKey[m.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %s in enum %s", ErrInvalidModel, m.Key, name)
		}
		if m.Value == nil || !reflect.TypeOf(m.Value).Comparable() {
			return nil, fmt.Errorf("%w: enum %s.%s needs a comparable scalar value", ErrInvalidModel, name, m.Key)
		}
		v := &EnumValue{enum: e, key: m.Key, value: m.Value}
		e.members = append(e.members, v)
		e.byKey[m.Key] = v
	}
	return e, nil
}

// MustEnum is like NewEnum but panics on error.
func MustEnum(name string, members ...EnumMember) *Enum {
	e, err := NewEnum(name, members...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Enum) Name() string { return e.name }

// Of returns the member with the given key.
func (e *Enum) Of(key string) (*EnumValue, error) {
	v, ok := e.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: could not find enumeration %s in %s", ErrUnknownEnumMember, key, e.name)
	}
	return v, nil
}

// MustOf is like Of but panics on unknown keys.
func (e *Enum) MustOf(key string) *EnumValue {
	v, err := e.Of(key)
	if err != nil {
		panic(err)
	}
	return v
}

// FromValue returns the member whose value equals v. Numbers compare by value
// regardless of their Go type.
func (e *Enum) FromValue(v any) (*EnumValue, error) {
	if ev, ok := v.(*EnumValue); ok && ev.enum == e {
		return ev, nil
	}
	for _, m := range e.members {
		if sameScalar(m.value, v) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: could not find value %v in %s", ErrUnknownEnumMember, v, e.name)
}

// ValidValues returns the member keys in declaration order.
func (e *Enum) ValidValues() []string {
	keys := make([]string, len(e.members))
	for i, m := range e.members {
		keys[i] = m.key
	}
	return keys
}

// EnumValue is a member of an Enum.
type EnumValue struct {
	enum  *Enum
	key   string
	value any
}

func (v *EnumValue) Key() string      { return v.key }
func (v *EnumValue) Value() any       { return v.value }
func (v *EnumValue) Enum() *Enum      { return v.enum }
func (v *EnumValue) TypeName() string { return v.enum.name }
func (v *EnumValue) String() string   { return fmt.Sprint(v.value) }

func sameScalar(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	if b == nil || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	}
	return 0, false
}
