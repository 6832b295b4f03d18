package model

import (
	"fmt"
	"math"
	"reflect"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/schema"
)

// wireKind is the shape of a raw value, classified once before dispatch.
type wireKind int

const (
	wireScalar wireKind = iota
	wireEmbedded
	wireRef
	wireList
)

func (k wireKind) String() string {
	switch k {
	case wireEmbedded:
		return "embedded"
	case wireRef:
		return "ref"
	case wireList:
		return "list"
	}
	return "scalar"
}

// classify inspects the reserved keys of a composite value. A mapping is an
// embedded entity when it is tagged with __model or when the declared kind is
// a model; otherwise it stays a scalar (e.g. on an any field).
func classify(t schema.Type, v any) (wireKind, core.Document) {
	if doc, ok := core.AsDocument(v); ok {
		if truthy(doc[core.KeyRef]) {
			return wireRef, doc
		}
		if _, tagged := doc[core.KeyModel]; tagged || t.Kind() == schema.KindModel {
			return wireEmbedded, doc
		}
		return wireScalar, nil
	}
	if isList(v) {
		return wireList, nil
	}
	return wireScalar, nil
}

// Decode reconstructs a model from a raw document tagged with __model.
func (r *Registry) Decode(doc core.Document, loader Loader) (Model, error) {
	name, _ := doc[core.KeyModel].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: document has no %s tag", ErrDecode, core.KeyModel)
	}
	k, err := r.Kind(name)
	if err != nil {
		return nil, err
	}
	return r.decodeKind(k, doc, loader)
}

// DecodeInto binds m and populates it from doc. Keys missing from the schema
// are ignored; declared fields missing from doc stay unset.
func (r *Registry) DecodeInto(m Model, doc core.Document, loader Loader) error {
	if err := r.Init(m); err != nil {
		return err
	}
	return r.populate(m, doc, loader)
}

func (r *Registry) decodeKind(k *Kind, doc core.Document, loader Loader) (Model, error) {
	m := k.New()
	if err := r.populate(m, doc, loader); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Registry) populate(m Model, doc core.Document, loader Loader) error {
	b := m.base()
	b.loader = loader

	for key, raw := range doc {
		t, ok := b.kind.Schema.Field(key)
		if !ok {
			continue
		}
		v, err := r.decodeValue(t, raw, loader)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %w", ErrDecode, b.kind.Name, key, err)
		}
		if err := b.Set(key, v); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
	return nil
}

func (r *Registry) decodeValue(t schema.Type, raw any, loader Loader) (any, error) {
	if raw == nil {
		return nil, nil
	}
	kind, doc := classify(t, raw)
	switch kind {
	case wireRef:
		return r.decodeRef(doc, loader)
	case wireEmbedded:
		return r.decodeEmbedded(t, doc, loader)
	case wireList:
		rv := reflect.ValueOf(raw)
		elem := t.Element()
		out := make([]any, rv.Len())
		for i := range out {
			v, err := r.decodeValue(elem, rv.Index(i).Interface(), loader)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return r.decodeScalar(t, raw)
}

func (r *Registry) decodeRef(doc core.Document, loader Loader) (*Reference, error) {
	name, _ := doc[core.KeyModel].(string)
	coll, _ := doc[core.KeyCollection].(string)
	id := idString(doc[core.KeyID])
	if name == "" || id == "" {
		return nil, fmt.Errorf("malformed reference %v", doc)
	}
	if _, err := r.Kind(name); err != nil {
		return nil, err
	}
	return &Reference{model: name, collection: coll, id: id, registry: r, loader: loader}, nil
}

func (r *Registry) decodeEmbedded(t schema.Type, doc core.Document, loader Loader) (Model, error) {
	name, _ := doc[core.KeyModel].(string)
	if name == "" {
		name = t.Name()
	}
	k, err := r.Kind(name)
	if err != nil {
		return nil, err
	}
	return r.decodeKind(k, doc, loader)
}

// decodeScalar normalises wire numbers to the declared kind and passes enum
// scalars through the enum constructor.
func (r *Registry) decodeScalar(t schema.Type, v any) (any, error) {
	switch t.Kind() {
	case schema.KindEnum:
		e, err := r.Enum(t.Name())
		if err != nil {
			return nil, err
		}
		return e.FromValue(v)
	case schema.KindID:
		if oid, ok := v.(core.ObjectID); ok {
			return oid, nil
		}
		return idString(v), nil
	case schema.KindFloat, schema.KindDouble:
		if _, isFloat := v.(float64); !isFloat {
			if _, isFloat32 := v.(float32); isFloat32 && t.Kind() == schema.KindFloat {
				return v, nil
			}
			if f, ok := asFloat(v); ok {
				return f, nil
			}
		}
	case schema.KindInt:
		switch n := v.(type) {
		case float64:
			if i, ok := integral(n); ok {
				return i, nil
			}
		case float32:
			if i, ok := integral(float64(n)); ok {
				return i, nil
			}
		}
	}
	return v, nil
}

// integral converts f to int64 when it is a whole number in int64 range.
// Other values are left for Check to reject.
func integral(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	}
	return fmt.Sprint(v)
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	}
	if f, ok := asFloat(v); ok {
		return f != 0
	}
	return true
}

func isList(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
