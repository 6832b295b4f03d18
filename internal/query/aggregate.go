package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/simobern/base/pkg/core"
)

// Aggregate runs a pipeline over docs. Supported stages: $match, $project,
// $group, $sort, $limit, $skip, $unwind and $count.
func Aggregate(docs []core.Document, pipeline []core.Document) ([]core.Document, error) {
	cur := make([]core.Document, len(docs))
	for i, d := range docs {
		cur[i] = d.Clone()
	}

	for i, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("%w: stage %d must have exactly one operator", ErrInvalid, i)
		}
		for op, spec := range stage {
			next, err := runStage(cur, op, spec)
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", i, op, err)
			}
			cur = next
		}
	}
	return cur, nil
}

func runStage(docs []core.Document, op string, spec any) ([]core.Document, error) {
	switch op {
	case "$match":
		filter, ok := core.AsDocument(spec)
		if !ok {
			return nil, fmt.Errorf("%w: $match needs a document", ErrInvalid)
		}
		return Filter(docs, filter)
	case "$project":
		fields, ok := core.AsDocument(spec)
		if !ok {
			return nil, fmt.Errorf("%w: $project needs a document", ErrInvalid)
		}
		return projectStage(docs, fields)
	case "$group":
		g, ok := core.AsDocument(spec)
		if !ok {
			return nil, fmt.Errorf("%w: $group needs a document", ErrInvalid)
		}
		return group(docs, g)
	case "$sort":
		Sort(docs, sortSpec(spec))
		return docs, nil
	case "$limit":
		n, ok := toInt(spec)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%w: $limit needs a non-negative integer", ErrInvalid)
		}
		if n < int64(len(docs)) {
			docs = docs[:n]
		}
		return docs, nil
	case "$skip":
		n, ok := toInt(spec)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%w: $skip needs a non-negative integer", ErrInvalid)
		}
		if n >= int64(len(docs)) {
			return nil, nil
		}
		return docs[n:], nil
	case "$unwind":
		path, ok := spec.(string)
		if !ok {
			if d, isDoc := core.AsDocument(spec); isDoc {
				path, ok = d["path"].(string)
			}
		}
		if !ok || !strings.HasPrefix(path, "$") {
			return nil, fmt.Errorf("%w: $unwind needs a $field path", ErrInvalid)
		}
		return unwind(docs, strings.TrimPrefix(path, "$"))
	case "$count":
		name, ok := spec.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: $count needs a field name", ErrInvalid)
		}
		return []core.Document{{name: int64(len(docs))}}, nil
	}
	return nil, fmt.Errorf("%w: unsupported stage %s", ErrInvalid, op)
}

// sortSpec accepts an ordered D or, for unordered documents, sorts keys by name.
func sortSpec(spec any) core.D {
	if d, ok := spec.(core.D); ok {
		return d
	}
	doc, ok := core.AsDocument(spec)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make(core.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, core.E{Key: k, Value: doc[k]})
	}
	return out
}

func projectStage(docs []core.Document, fields core.Document) ([]core.Document, error) {
	plain := core.Document{}
	computed := core.Document{}
	for k, v := range fields {
		switch v.(type) {
		case string, core.Document, map[string]any:
			computed[k] = v
		default:
			plain[k] = v
		}
	}

	out := make([]core.Document, 0, len(docs))
	for _, d := range docs {
		if len(computed) == 0 {
			p, err := Project(d, plain)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
			continue
		}

		// Computed fields imply inclusion mode.
		p := core.Document{}
		if v, ok := plain[core.KeyID]; !ok || truthy(v) {
			if id, found := d[core.KeyID]; found {
				p[core.KeyID] = id
			}
		}
		for k, v := range plain {
			if k == core.KeyID || !truthy(v) {
				continue
			}
			if val, found := Lookup(d, k); found {
				if err := setPath(p, k, core.CloneValue(val)); err != nil {
					return nil, err
				}
			}
		}
		for k, expr := range computed {
			if err := setPath(p, k, eval(d, expr)); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// eval evaluates an aggregation expression against doc: "$path" strings are
// field references, documents are evaluated key by key, anything else is a literal.
func eval(doc core.Document, expr any) any {
	switch e := expr.(type) {
	case string:
		if strings.HasPrefix(e, "$") {
			v, _ := Lookup(doc, e[1:])
			return v
		}
		return e
	case core.Document, map[string]any:
		d, _ := core.AsDocument(e)
		out := make(core.Document, len(d))
		for k, v := range d {
			out[k] = eval(doc, v)
		}
		return out
	case []any:
		out := make([]any, len(e))
		for i, v := range e {
			out[i] = eval(doc, v)
		}
		return out
	}
	return expr
}

func unwind(docs []core.Document, path string) ([]core.Document, error) {
	var out []core.Document
	for _, d := range docs {
		v, found := Lookup(d, path)
		if !found || v == nil {
			continue
		}
		l, ok := asList(v)
		if !ok {
			out = append(out, d)
			continue
		}
		for _, e := range l {
			c := d.Clone()
			if err := setPath(c, path, core.CloneValue(e)); err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

type groupState struct {
	key  any
	docs []core.Document
}

func group(docs []core.Document, spec core.Document) ([]core.Document, error) {
	keyExpr, ok := spec[core.KeyID]
	if !ok {
		return nil, fmt.Errorf("%w: $group needs an _id", ErrInvalid)
	}

	var groups []*groupState
	for _, d := range docs {
		key := eval(d, keyExpr)
		var g *groupState
		for _, existing := range groups {
			if Equal(existing.key, key) {
				g = existing
				break
			}
		}
		if g == nil {
			g = &groupState{key: key}
			groups = append(groups, g)
		}
		g.docs = append(g.docs, d)
	}

	out := make([]core.Document, 0, len(groups))
	for _, g := range groups {
		res := core.Document{core.KeyID: g.key}
		for field, acc := range spec {
			if field == core.KeyID {
				continue
			}
			accDoc, ok := core.AsDocument(acc)
			if !ok || len(accDoc) != 1 {
				return nil, fmt.Errorf("%w: accumulator for %s must have one operator", ErrInvalid, field)
			}
			for op, expr := range accDoc {
				v, err := accumulate(op, expr, g.docs)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", field, err)
				}
				res[field] = v
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func accumulate(op string, expr any, docs []core.Document) (any, error) {
	values := make([]any, len(docs))
	for i, d := range docs {
		values[i] = eval(d, expr)
	}

	switch op {
	case "$sum", "$avg":
		var fsum float64
		var isum int64
		allInt, n := true, 0
		for _, v := range values {
			f, ok := number(v)
			if !ok {
				continue
			}
			n++
			fsum += f
			if i, isInt := toInt(v); isInt && isInteger(v) {
				isum += i
			} else {
				allInt = false
			}
		}
		if op == "$avg" {
			if n == 0 {
				return nil, nil
			}
			return fsum / float64(n), nil
		}
		if allInt {
			return isum, nil
		}
		return fsum, nil
	case "$first":
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case "$last":
		if len(values) == 0 {
			return nil, nil
		}
		return values[len(values)-1], nil
	case "$min", "$max":
		var best any
		for _, v := range values {
			if v == nil {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			c := Compare(v, best)
			if (op == "$min" && c < 0) || (op == "$max" && c > 0) {
				best = v
			}
		}
		return best, nil
	case "$push":
		return values, nil
	case "$addToSet":
		set := []any{}
	outer:
		for _, v := range values {
			for _, seen := range set {
				if Equal(seen, v) {
					continue outer
				}
			}
			set = append(set, v)
		}
		return set, nil
	}
	return nil, fmt.Errorf("%w: unsupported accumulator %s", ErrInvalid, op)
}
