package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Kind is the base kind of a field.
type Kind string

const (
	KindInt    Kind = "int"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindFloat  Kind = "float"
	KindDouble Kind = "double"
	KindAny    Kind = "any"
	KindID     Kind = "id"
	KindTime   Kind = "time"
	KindModel  Kind = "model"
	KindEnum   Kind = "enum"
)

// IsCustom reports whether the kind refers to a registered type by name.
func (k Kind) IsCustom() bool {
	return k == KindModel || k == KindEnum
}

// Named is implemented by values of custom kinds (models, references, enum
// values). TypeName must return the registered type name.
type Named interface {
	TypeName() string
}

// Type is a field type descriptor. Build it with the kind constructors and the
// fluent Array/Nullable modifiers.
type Type struct {
	kind       Kind
	name       string
	isArray    bool
	isNullable bool
}

func newType(k Kind) *Type { return &Type{kind: k} }

func Int() *Type    { return newType(KindInt) }
func String() *Type { return newType(KindString) }
func Bool() *Type   { return newType(KindBool) }
func Float() *Type  { return newType(KindFloat) }
func Double() *Type { return newType(KindDouble) }
func Any() *Type    { return newType(KindAny) }

// ID is the identity kind: a non-empty opaque string.
func ID() *Type { return newType(KindID) }

// Time is the date kind (time.Time).
func Time() *Type { return newType(KindTime) }

// Model declares a field holding an embedded entity or a reference to the named model.
func Model(name string) *Type {
	return &Type{kind: KindModel, name: name}
}

// Enum declares a field holding a value of the named enum.
func Enum(name string) *Type {
	return &Type{kind: KindEnum, name: name}
}

// Array marks the field as an ordered list of the element type.
func (t *Type) Array() *Type {
	t.isArray = true
	return t
}

// Nullable allows nil values.
func (t *Type) Nullable() *Type {
	t.isNullable = true
	return t
}

func (t Type) Kind() Kind       { return t.kind }
func (t Type) Name() string     { return t.name }
func (t Type) IsArray() bool    { return t.isArray }
func (t Type) IsNullable() bool { return t.isNullable }

// Element returns the descriptor of a single array element.
func (t Type) Element() Type {
	e := t
	e.isArray = false
	return e
}

func (t Type) elementName() string {
	if t.kind.IsCustom() {
		return t.name
	}
	return string(t.kind)
}

// String renders the type as e.g. "int", "[]Address", "string?".
func (t Type) String() string {
	var b strings.Builder
	if t.isArray {
		b.WriteString("[]")
	}
	b.WriteString(t.elementName())
	if t.isNullable {
		b.WriteString("?")
	}
	return b.String()
}

// Check validates value against the descriptor. It has no side effects.
func (t Type) Check(value any) error {
	if IsNull(value) {
		if t.isNullable {
			return nil
		}
		return &ValidationError{Index: -1, Expected: t.String(), Reason: "field is not nullable"}
	}

	if !t.isArray {
		return t.checkElement(value)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return &ValidationError{Index: -1, Expected: t.String(), Got: typeName(value), Reason: "value is not an array"}
	}

	// Every element is checked; the first failure wins.
	var first error
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		var err error
		if IsNull(elem) {
			if !t.isNullable {
				err = &ValidationError{Expected: t.elementName(), Reason: "element is not nullable"}
			}
		} else {
			err = t.checkElement(elem)
		}
		if err != nil && first == nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Index = i
			}
			first = err
		}
	}
	return first
}

func (t Type) checkElement(v any) error {
	ok := false
	switch t.kind {
	case KindAny:
		ok = true
	case KindInt:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			ok = true
		}
	case KindFloat:
		switch v.(type) {
		case float32, float64:
			ok = true
		}
	case KindDouble:
		_, ok = v.(float64)
	case KindString:
		_, ok = v.(string)
	case KindBool:
		_, ok = v.(bool)
	case KindID:
		rv := reflect.ValueOf(v)
		ok = rv.Kind() == reflect.String && rv.String() != ""
	case KindTime:
		_, ok = v.(time.Time)
	case KindModel, KindEnum:
		if n, isNamed := v.(Named); isNamed {
			ok = n.TypeName() == t.name
		}
	}
	if ok {
		return nil
	}
	return &ValidationError{Index: -1, Expected: t.elementName(), Got: typeName(v), Reason: "type mismatch"}
}

func typeName(v any) string {
	if n, ok := v.(Named); ok {
		return n.TypeName()
	}
	return fmt.Sprintf("%T", v)
}

// IsNull reports nil interfaces and typed nil pointers, maps, slices and funcs.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
