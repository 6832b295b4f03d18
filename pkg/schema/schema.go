package schema

import (
	"errors"
	"fmt"
	"strings"
)

// reserved keys may never be declared as application fields.
var reserved = map[string]bool{
	"__model":      true,
	"__ref":        true,
	"__collection": true,
}

// Schema is the frozen field map of one model type. It is read-only and
// shared by every instance of that type.
type Schema struct {
	model  string
	fields map[string]Type
	order  []string
}

// Model returns the name of the model the schema belongs to.
func (s *Schema) Model() string { return s.model }

// Field returns the descriptor declared for name.
func (s *Schema) Field(name string) (Type, bool) {
	t, ok := s.fields[name]
	return t, ok
}

// Lookup is like Field but returns a *SchemaError for undeclared names.
func (s *Schema) Lookup(name string) (Type, error) {
	t, ok := s.fields[name]
	if !ok {
		return Type{}, &SchemaError{Model: s.model, Field: name, Reason: "field does not exist"}
	}
	return t, nil
}

func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) String() string {
	parts := make([]string, 0, len(s.order))
	for _, name := range s.order {
		parts = append(parts, name+" "+s.fields[name].String())
	}
	return fmt.Sprintf("%s{%s}", s.model, strings.Join(parts, ", "))
}

// Declaration collects field descriptors during the one-time declaration
// phase of a model type.
type Declaration struct {
	model  string
	fields map[string]Type
	order  []string
	errs   []error
	built  bool
}

// NewDeclaration starts a declaration for the named model.
func NewDeclaration(model string) *Declaration {
	return &Declaration{model: model, fields: make(map[string]Type)}
}

// Field registers the descriptor for name. Declaring the same name twice, a
// reserved key, or a nil type is recorded and reported by Build.
func (d *Declaration) Field(name string, t *Type) *Declaration {
	switch {
	case d.built:
		d.errs = append(d.errs, &SchemaError{Model: d.model, Field: name, Reason: "declaration already built"})
	case name == "":
		d.errs = append(d.errs, &SchemaError{Model: d.model, Field: name, Reason: "empty field name"})
	case reserved[name]:
		d.errs = append(d.errs, &SchemaError{Model: d.model, Field: name, Reason: "reserved key"})
	case t == nil:
		d.errs = append(d.errs, &SchemaError{Model: d.model, Field: name, Reason: "nil type"})
	case t.kind.IsCustom() && t.name == "":
		d.errs = append(d.errs, &SchemaError{Model: d.model, Field: name, Reason: "custom kind without a type name"})
	default:
		if _, dup := d.fields[name]; dup {
			d.errs = append(d.errs, &SchemaError{Model: d.model, Field: name, Reason: "field already declared"})
			return d
		}
		d.fields[name] = *t
		d.order = append(d.order, name)
	}
	return d
}

// Build freezes the declaration into a Schema.
func (d *Declaration) Build() (*Schema, error) {
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	d.built = true
	fields := make(map[string]Type, len(d.fields))
	for k, v := range d.fields {
		fields[k] = v
	}
	return &Schema{model: d.model, fields: fields, order: append([]string(nil), d.order...)}, nil
}
