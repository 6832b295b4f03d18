// Package aggregation builds aggregation pipelines: an ordered, append-only
// list of stages consumed opaquely by the backing store.
package aggregation

import (
	"strings"

	"github.com/simobern/base/pkg/core"
)

// FieldPrefix marks a field path inside an expression.
const FieldPrefix = "$"

// Builder accumulates pipeline stages in call order.
type Builder struct {
	stages []core.Document
}

func New() *Builder {
	return &Builder{}
}

func (b *Builder) add(op string, spec any) *Builder {
	b.stages = append(b.stages, core.Document{op: spec})
	return b
}

// Match appends a $match stage unless spec is empty.
func (b *Builder) Match(spec core.Document) *Builder {
	if len(spec) == 0 {
		return b
	}
	return b.add("$match", spec)
}

// Project appends a $project stage unless spec is empty.
func (b *Builder) Project(spec core.Document) *Builder {
	if len(spec) == 0 {
		return b
	}
	return b.add("$project", spec)
}

// Group appends a $group stage unless spec is empty.
func (b *Builder) Group(spec core.Document) *Builder {
	if len(spec) == 0 {
		return b
	}
	return b.add("$group", spec)
}

// Sort appends a $sort stage unless spec is empty. Key order is preserved.
func (b *Builder) Sort(spec core.D) *Builder {
	if len(spec) == 0 {
		return b
	}
	return b.add("$sort", spec)
}

func (b *Builder) Limit(n int64) *Builder {
	return b.add("$limit", n)
}

func (b *Builder) Skip(n int64) *Builder {
	return b.add("$skip", n)
}

// Unwind appends {$unwind: "$field"}.
func (b *Builder) Unwind(field string) *Builder {
	return b.add("$unwind", Field(field))
}

// Pipeline returns a copy of the stages in call order.
func (b *Builder) Pipeline() []core.Document {
	out := make([]core.Document, len(b.stages))
	copy(out, b.stages)
	return out
}

// Len reports the number of stages.
func (b *Builder) Len() int { return len(b.stages) }

// Field returns the field-path form of name, adding the prefix once.
func Field(name string) string {
	if strings.HasPrefix(name, FieldPrefix) {
		return name
	}
	return FieldPrefix + name
}
