package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/simobern/base/pkg/core"
)

// toBSON converts documents, ordered documents and server-side code into
// driver values.
func toBSON(v any) any {
	switch t := v.(type) {
	case core.Document:
		m := make(bson.M, len(t))
		for k, val := range t {
			m[k] = toBSON(val)
		}
		return m
	case map[string]any:
		return toBSON(core.Document(t))
	case core.D:
		d := make(bson.D, len(t))
		for i, e := range t {
			d[i] = bson.E{Key: e.Key, Value: toBSON(e.Value)}
		}
		return d
	case []any:
		a := make(bson.A, len(t))
		for i, val := range t {
			a[i] = toBSON(val)
		}
		return a
	case core.ObjectID:
		if oid, err := bson.ObjectIDFromHex(string(t)); err == nil {
			return oid
		}
		return string(t)
	case core.Code:
		if len(t.Scope) == 0 {
			return bson.JavaScript(t.Source)
		}
		return bson.CodeWithScope{Code: bson.JavaScript(t.Source), Scope: toBSON(t.Scope)}
	}
	return v
}

func toDocument(m bson.M) core.Document {
	doc, _ := fromBSON(m).(core.Document)
	return doc
}

// fromBSON converts decoded driver values into plain documents. Object ids
// become core.ObjectID and 32-bit integers widen to int64.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		doc := make(core.Document, len(t))
		for k, val := range t {
			doc[k] = fromBSON(val)
		}
		return doc
	case map[string]any:
		return fromBSON(bson.M(t))
	case bson.D:
		doc := make(core.Document, len(t))
		for _, e := range t {
			doc[e.Key] = fromBSON(e.Value)
		}
		return doc
	case bson.A:
		l := make([]any, len(t))
		for i, val := range t {
			l[i] = fromBSON(val)
		}
		return l
	case []any:
		return fromBSON(bson.A(t))
	case int32:
		return int64(t)
	case bson.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case bson.ObjectID:
		return core.ObjectID(t.Hex())
	case bson.JavaScript:
		return core.Code{Source: string(t)}
	}
	return v
}

// idValue returns the filter value for an identity. A plain string that is a
// valid object id matches both the string and the ObjectID form, since ids
// arrive as strings through references and FindByID.
func idValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return toBSON(v)
	}
	oid, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return s
	}
	return bson.M{"$in": bson.A{s, oid}}
}
