package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/simobern/base/pkg/core"
)

// Serializer defines how documents are read from and written to files.
type Serializer interface {
	// Ext is the file extension, including the dot.
	Ext() string
	Parse(data []byte) (core.Document, error)
	Serialize(doc core.Document) ([]byte, error)
}

// DateKey marks an encoded time value: {"$date": "<RFC 3339>"}.
const DateKey = "$date"

// SerializerFor returns the serializer for a format name ("json" or "yaml").
func SerializerFor(format string) (Serializer, error) {
	switch format {
	case "", "json":
		return JSONSerializer{}, nil
	case "yaml", "yml":
		return YAMLSerializer{}, nil
	}
	return nil, fmt.Errorf("unknown document format %q", format)
}

// --- JSON Serializer ---

// JSONSerializer stores one indented JSON object per file. Numbers are read
// as int64 when integral and float64 otherwise.
type JSONSerializer struct{}

func (JSONSerializer) Ext() string { return ".json" }

func (JSONSerializer) Parse(data []byte) (core.Document, error) {
	var payload map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	doc, _ := fromWire(payload).(core.Document)
	return doc, nil
}

func (JSONSerializer) Serialize(doc core.Document) ([]byte, error) {
	return json.MarshalIndent(toWire(doc), "", "  ")
}

// --- YAML Serializer ---

type YAMLSerializer struct{}

func (YAMLSerializer) Ext() string { return ".yaml" }

func (YAMLSerializer) Parse(data []byte) (core.Document, error) {
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if payload == nil {
		return core.Document{}, nil
	}
	doc, _ := fromWire(payload).(core.Document)
	return doc, nil
}

func (YAMLSerializer) Serialize(doc core.Document) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toWire(doc)); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- Helpers ---

// toWire converts a document into plain maps and slices, encoding time
// values as {"$date": ...}.
func toWire(v any) any {
	switch t := v.(type) {
	case core.Document:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = toWire(val)
		}
		return m
	case map[string]any:
		return toWire(core.Document(t))
	case core.D:
		return toWire(t.Map())
	case []any:
		l := make([]any, len(t))
		for i, val := range t {
			l[i] = toWire(val)
		}
		return l
	case time.Time:
		return map[string]any{DateKey: t.UTC().Format(time.RFC3339Nano)}
	}
	return v
}

// fromWire reverses toWire and normalizes numbers.
func fromWire(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if s, ok := t[DateKey].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					return ts
				}
			}
		}
		doc := make(core.Document, len(t))
		for k, val := range t {
			doc[k] = fromWire(val)
		}
		return doc
	case []any:
		l := make([]any, len(t))
		for i, val := range t {
			l[i] = fromWire(val)
		}
		return l
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case int:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	}
	return v
}
