package aggregation

import (
	"strconv"
	"strings"

	"github.com/simobern/base/pkg/core"
)

// Sum returns {$sum: v}. Numbers and numeric strings such as "5" or "-2.5"
// are literals, any other string is a field name.
func Sum(v any) core.Document {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return core.Document{"$sum": n}
	case string:
		if lit, ok := numericLiteral(n); ok {
			return core.Document{"$sum": lit}
		}
		return core.Document{"$sum": Field(n)}
	}
	return core.Document{"$sum": v}
}

// numericLiteral parses plain decimal notation only; hex, inf and nan stay
// field names.
func numericLiteral(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789+-.eE", r)
	}) >= 0 {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// Push returns {$push: "$f"} for one field, or {$push: ["$f1", "$f2", ...]} for several.
func Push(fields ...string) core.Document {
	if len(fields) == 1 {
		return core.Document{"$push": Field(fields[0])}
	}
	list := make([]any, len(fields))
	for i, f := range fields {
		list[i] = Field(f)
	}
	return core.Document{"$push": list}
}

func AddToSet(field string) core.Document { return core.Document{"$addToSet": Field(field)} }

func First(field string) core.Document { return core.Document{"$first": Field(field)} }
func Last(field string) core.Document  { return core.Document{"$last": Field(field)} }
func Max(field string) core.Document   { return core.Document{"$max": Field(field)} }
func Min(field string) core.Document   { return core.Document{"$min": Field(field)} }
func Avg(field string) core.Document   { return core.Document{"$avg": Field(field)} }
