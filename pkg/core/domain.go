// Package core defines the ports of the mapper: the raw document shapes exchanged
// with a backing store and the small synchronous driver interface the rest of the
// module depends on. Adapters (memory, fs, mongo) implement these contracts.
package core

import (
	"maps"
	"time"
)

// Reserved document keys. Application schemas may not declare them.
const (
	KeyID         = "_id"
	KeyModel      = "__model"
	KeyRef        = "__ref"
	KeyCollection = "__collection"
)

// Document is the untyped wire representation of an entity: field name to
// scalar, list or nested mapping.
type Document map[string]any

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return CloneValue(d).(Document)
}

// ID returns the identity stored under "_id" in string form.
func (d Document) ID() (string, bool) {
	id := IDString(d[KeyID])
	return id, id != ""
}

// ObjectID is a store-native 12-byte identity in hex form. Adapters that
// read such identities return this type so that writes can restore them.
type ObjectID string

func (id ObjectID) String() string { return string(id) }

// IDString renders an identity value as a string. Values that are not
// identities yield "".
func IDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case ObjectID:
		return string(id)
	}
	return ""
}

// E is a single ordered key/value pair.
type E struct {
	Key   string
	Value any
}

// D is an ordered document. Used where key order is significant (sort specs,
// commands).
type D []E

// Map converts the ordered document into an unordered one.
func (d D) Map() Document {
	out := make(Document, len(d))
	for _, e := range d {
		out[e.Key] = e.Value
	}
	return out
}

// Get returns the value of the first element with the given key.
func (d D) Get(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Code is a server-side function (map/reduce) with an optional scope.
type Code struct {
	Source string
	Scope  Document
}

// CloneValue deep-copies maps and slices found in v. Scalars are returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case D:
		out := make(D, len(t))
		for i, e := range t {
			out[i] = E{Key: e.Key, Value: CloneValue(e.Value)}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case time.Time:
		return t
	default:
		return v
	}
}

// AsDocument returns v as a Document when it is any kind of string-keyed map.
func AsDocument(v any) (Document, bool) {
	switch t := v.(type) {
	case Document:
		return t, true
	case map[string]any:
		return Document(t), true
	case D:
		return t.Map(), true
	default:
		return nil, false
	}
}

// Merge copies src on top of dst and returns dst.
func Merge(dst, src Document) Document {
	if dst == nil {
		dst = make(Document, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// EventType represents the type of change in a collection.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored document.
type Event struct {
	Type       EventType
	Collection string
	ID         string
	Timestamp  int64 // Unix timestamp
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	return string(e.Type) + " " + e.Collection + "/" + e.ID
}
