package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/simobern/base/pkg/adapters/fs"
	"github.com/simobern/base/pkg/core"
)

// parseDoc decodes a JSON (or YAML) document given on the command line.
// Empty input yields an empty query.
func parseDoc(s string) (core.Document, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Document{}, nil
	}
	format := "json"
	if !strings.HasPrefix(s, "{") {
		format = "yaml"
	}
	ser, err := fs.SerializerFor(format)
	if err != nil {
		return nil, err
	}
	doc, err := ser.Parse([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", s, err)
	}
	return doc, nil
}

// parseSort turns "age,-name" into [{age 1} {name -1}].
func parseSort(s string) core.D {
	var spec core.D
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := 1
		if rest, ok := strings.CutPrefix(field, "-"); ok {
			field, dir = rest, -1
		}
		spec = append(spec, core.E{Key: field, Value: dir})
	}
	return spec
}

// printer writes documents in the selected output format.
type printer struct {
	w   io.Writer
	ser fs.Serializer
	n   int
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	ser, err := fs.SerializerFor(format)
	if err != nil {
		return nil, err
	}
	return &printer{w: w, ser: ser}, nil
}

func (p *printer) Document(doc core.Document) error {
	data, err := p.ser.Serialize(doc)
	if err != nil {
		return err
	}
	if p.n > 0 && p.ser.Ext() != ".json" {
		if _, err := io.WriteString(p.w, "---\n"); err != nil {
			return err
		}
	}
	p.n++
	_, err = p.w.Write(data)
	if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(p.w, "\n")
	}
	return err
}

func (p *printer) Value(v any) error {
	if doc, ok := core.AsDocument(v); ok {
		return p.Document(doc)
	}
	_, err := fmt.Fprintln(p.w, v)
	return err
}
