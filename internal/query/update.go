package query

import (
	"fmt"
	"strings"

	"github.com/simobern/base/pkg/core"
)

// IsOperatorUpdate reports whether update uses $-operators rather than
// replacing the document.
func IsOperatorUpdate(update core.Document) bool {
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// Apply returns a copy of doc with update applied. Operator updates support
// $set, $unset, $inc, $push and $addToSet; any other update replaces the
// document while keeping its _id.
func Apply(doc core.Document, update core.Document) (core.Document, error) {
	if !IsOperatorUpdate(update) {
		out := update.Clone()
		if out == nil {
			out = core.Document{}
		}
		if id, ok := doc[core.KeyID]; ok {
			out[core.KeyID] = id
		}
		return out, nil
	}

	out := doc.Clone()
	if out == nil {
		out = core.Document{}
	}
	for op, arg := range update {
		fields, ok := core.AsDocument(arg)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a document", ErrInvalid, op)
		}
		for path, v := range fields {
			if err := applyOperator(out, op, path, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func applyOperator(doc core.Document, op, path string, v any) error {
	if path == core.KeyID && op != "$set" {
		return fmt.Errorf("%w: cannot %s _id", ErrInvalid, op)
	}
	switch op {
	case "$set":
		return setPath(doc, path, core.CloneValue(v))
	case "$unset":
		unsetPath(doc, path)
		return nil
	case "$inc":
		delta, ok := number(v)
		if !ok {
			return fmt.Errorf("%w: $inc needs a number for %s", ErrInvalid, path)
		}
		cur, found := Lookup(doc, path)
		if !found || cur == nil {
			return setPath(doc, path, v)
		}
		base, ok := number(cur)
		if !ok {
			return fmt.Errorf("%w: cannot $inc non-numeric %s", ErrInvalid, path)
		}
		if isInteger(cur) && isInteger(v) {
			ci, _ := toInt(cur)
			di, _ := toInt(v)
			return setPath(doc, path, ci+di)
		}
		return setPath(doc, path, base+delta)
	case "$push", "$addToSet":
		cur, found := Lookup(doc, path)
		var list []any
		if found && cur != nil {
			l, ok := asList(cur)
			if !ok {
				return fmt.Errorf("%w: %s on non-list %s", ErrInvalid, op, path)
			}
			list = append(list, l...)
		}
		if op == "$addToSet" {
			for _, e := range list {
				if Equal(e, v) {
					return setPath(doc, path, list)
				}
			}
		}
		return setPath(doc, path, append(list, core.CloneValue(v)))
	}
	return fmt.Errorf("%w: unsupported update operator %s", ErrInvalid, op)
}

// Upsert builds the document inserted by an upsert: the equality fields of
// the filter with update applied on top.
func Upsert(filter, update core.Document) (core.Document, error) {
	seed := core.Document{}
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if _, isOps := operatorDoc(v); isOps {
			continue
		}
		if err := setPath(seed, k, core.CloneValue(v)); err != nil {
			return nil, err
		}
	}
	if !IsOperatorUpdate(update) {
		out := update.Clone()
		if out == nil {
			out = core.Document{}
		}
		if id, ok := seed[core.KeyID]; ok {
			if _, has := out[core.KeyID]; !has {
				out[core.KeyID] = id
			}
		}
		return out, nil
	}
	return Apply(seed, update)
}
