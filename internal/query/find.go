package query

import (
	"fmt"
	"slices"

	"github.com/simobern/base/pkg/core"
)

// Filter returns the documents matching filter, in input order.
func Filter(docs []core.Document, filter core.Document) ([]core.Document, error) {
	var out []core.Document
	for _, d := range docs {
		ok, err := Match(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Find runs a full find: filter, sort, skip, limit, then projection.
// The returned documents are copies.
func Find(docs []core.Document, filter core.Document, opts core.FindOptions) ([]core.Document, error) {
	matched, err := Filter(docs, filter)
	if err != nil {
		return nil, err
	}
	Sort(matched, opts.Sort)

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}

	out := make([]core.Document, 0, len(matched))
	for _, d := range matched {
		p, err := Project(d, opts.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Sort orders docs in place by spec. Stable, so ties keep input order.
func Sort(docs []core.Document, spec core.D) {
	if len(spec) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b core.Document) int {
		for _, e := range spec {
			va, _ := Lookup(a, e.Key)
			vb, _ := Lookup(b, e.Key)
			c := Compare(va, vb)
			if dir, ok := number(e.Value); ok && dir < 0 {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// Distinct returns the unique values at key, flattening lists, in first-seen order.
func Distinct(docs []core.Document, key string) []any {
	out := []any{}
	add := func(v any) {
		for _, seen := range out {
			if Equal(seen, v) {
				return
			}
		}
		out = append(out, v)
	}
	for _, d := range docs {
		v, found := Lookup(d, key)
		if !found {
			continue
		}
		if l, ok := asList(v); ok {
			for _, e := range l {
				add(e)
			}
			continue
		}
		add(v)
	}
	return out
}

// Project applies a find projection. Inclusion ({a: 1}) keeps the listed
// paths plus _id unless {_id: 0}; exclusion ({a: 0}) drops the listed paths.
func Project(doc core.Document, fields core.Document) (core.Document, error) {
	if len(fields) == 0 {
		return doc.Clone(), nil
	}

	include, exclude := false, false
	for k, v := range fields {
		if k == core.KeyID {
			continue
		}
		if truthy(v) {
			include = true
		} else {
			exclude = true
		}
	}
	if include && exclude {
		return nil, fmt.Errorf("%w: projection cannot mix inclusion and exclusion", ErrInvalid)
	}

	if !include {
		out := doc.Clone()
		for k, v := range fields {
			if !truthy(v) {
				unsetPath(out, k)
			}
		}
		return out, nil
	}

	out := core.Document{}
	if v, ok := fields[core.KeyID]; !ok || truthy(v) {
		if id, found := doc[core.KeyID]; found {
			out[core.KeyID] = id
		}
	}
	for k, v := range fields {
		if k == core.KeyID || !truthy(v) {
			continue
		}
		if val, found := Lookup(doc, k); found {
			if err := setPath(out, k, core.CloneValue(val)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}
