package query

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/simobern/base/pkg/core"
)

// ErrInvalid is returned for malformed filters, updates or pipelines.
var ErrInvalid = errors.New("invalid query")

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// toInt converts a numeric stage argument.
func toInt(v any) (int64, bool) {
	f, ok := number(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case nil, []byte, core.D:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Lookup resolves a dotted path. Numeric segments index lists; other
// segments applied to a list collect the values of every element.
func Lookup(doc core.Document, path string) (any, bool) {
	return lookup(doc, strings.Split(path, "."))
}

func lookup(v any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return v, true
	}
	if d, ok := core.AsDocument(v); ok {
		next, found := d[parts[0]]
		if !found {
			return nil, false
		}
		return lookup(next, parts[1:])
	}
	if l, ok := asList(v); ok {
		if i, err := strconv.Atoi(parts[0]); err == nil {
			if i < 0 || i >= len(l) {
				return nil, false
			}
			return lookup(l[i], parts[1:])
		}
		var out []any
		for _, e := range l {
			if found, ok := lookup(e, parts); ok {
				out = append(out, found)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// setPath writes v at a dotted path, creating intermediate documents.
func setPath(doc core.Document, path string, v any) error {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := core.AsDocument(cur[p])
		if !ok {
			if cur[p] != nil {
				return fmt.Errorf("%w: cannot set %s: %s is not a document", ErrInvalid, path, p)
			}
			next = core.Document{}
		}
		cur[p] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
	return nil
}

func unsetPath(doc core.Document, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := core.AsDocument(cur[p])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// typeRank orders values of different types when sorting.
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := number(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case core.Document, map[string]any, core.D:
		return 3
	case bool:
		return 5
	case time.Time:
		return 6
	}
	if _, ok := asList(v); ok {
		return 4
	}
	return 7
}

// Compare orders two values: numbers by value, strings lexically, times
// chronologically, lists element-wise; mixed types by type rank.
func Compare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case 1:
		fa, _ := number(a)
		fb, _ := number(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 5:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 6:
		return a.(time.Time).Compare(b.(time.Time))
	case 4:
		la, _ := asList(a)
		lb, _ := asList(b)
		for i := 0; i < len(la) && i < len(lb); i++ {
			if c := Compare(la[i], lb[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(la), len(lb))
	}
	if Equal(a, b) {
		return 0
	}
	return strings.Compare(reflect.TypeOf(a).String(), reflect.TypeOf(b).String())
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal compares values structurally; numbers compare by value.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if da, ok := core.AsDocument(a); ok {
		db, ok := core.AsDocument(b)
		if !ok || len(da) != len(db) {
			return false
		}
		for k, va := range da {
			vb, found := db[k]
			if !found || !Equal(va, vb) {
				return false
			}
		}
		return true
	}
	if la, ok := asList(a); ok {
		lb, ok := asList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
