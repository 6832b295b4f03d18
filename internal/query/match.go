package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/simobern/base/pkg/core"
)

// Match reports whether doc satisfies filter. An empty filter matches everything.
func Match(doc core.Document, filter core.Document) (bool, error) {
	for key, cond := range filter {
		ok, err := matchKey(doc, key, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchKey(doc core.Document, key string, cond any) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		clauses, ok := asList(cond)
		if !ok || len(clauses) == 0 {
			return false, fmt.Errorf("%w: %s needs a non-empty list", ErrInvalid, key)
		}
		return matchLogical(doc, key, clauses)
	}
	if strings.HasPrefix(key, "$") {
		return false, fmt.Errorf("%w: unknown top-level operator %s", ErrInvalid, key)
	}

	value, found := Lookup(doc, key)
	if ops, ok := operatorDoc(cond); ok {
		for op, arg := range ops {
			ok, err := matchOperator(value, found, op, arg)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return matchEqual(value, found, cond), nil
}

func matchLogical(doc core.Document, op string, clauses []any) (bool, error) {
	for _, c := range clauses {
		sub, ok := core.AsDocument(c)
		if !ok {
			return false, fmt.Errorf("%w: %s clauses must be documents", ErrInvalid, op)
		}
		ok, err := Match(doc, sub)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !ok:
			return false, nil
		case op == "$or" && ok:
			return true, nil
		case op == "$nor" && ok:
			return false, nil
		}
	}
	return op != "$or", nil
}

// operatorDoc reports whether cond is a document of $-operators.
func operatorDoc(cond any) (core.Document, bool) {
	d, ok := core.AsDocument(cond)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for k := range d {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return d, true
}

// matchEqual implements implicit equality, including membership for lists
// and null matching missing fields.
func matchEqual(value any, found bool, cond any) bool {
	if !found {
		return cond == nil
	}
	if Equal(value, cond) {
		return true
	}
	if l, ok := asList(value); ok {
		for _, e := range l {
			if Equal(e, cond) {
				return true
			}
		}
	}
	return false
}

func anyElement(value any, pred func(any) bool) bool {
	if pred(value) {
		return true
	}
	if l, ok := asList(value); ok {
		for _, e := range l {
			if pred(e) {
				return true
			}
		}
	}
	return false
}

func matchOperator(value any, found bool, op string, arg any) (bool, error) {
	switch op {
	case "$eq":
		return matchEqual(value, found, arg), nil
	case "$ne":
		return !matchEqual(value, found, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		return anyElement(value, func(v any) bool {
			if typeRank(v) != typeRank(arg) {
				return false
			}
			c := Compare(v, arg)
			switch op {
			case "$gt":
				return c > 0
			case "$gte":
				return c >= 0
			case "$lt":
				return c < 0
			}
			return c <= 0
		}), nil
	case "$in", "$nin":
		list, ok := asList(arg)
		if !ok {
			return false, fmt.Errorf("%w: %s needs a list", ErrInvalid, op)
		}
		in := false
		for _, candidate := range list {
			if matchEqual(value, found, candidate) {
				in = true
				break
			}
		}
		return in == (op == "$in"), nil
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			n, isNum := number(arg)
			want, ok = n != 0, isNum
		}
		if !ok {
			return false, fmt.Errorf("%w: $exists needs a boolean", ErrInvalid)
		}
		return found == want, nil
	case "$size":
		n, ok := toInt(arg)
		if !ok {
			return false, fmt.Errorf("%w: $size needs an integer", ErrInvalid)
		}
		l, isList := asList(value)
		return found && isList && int64(len(l)) == n, nil
	case "$regex":
		pattern, ok := arg.(string)
		if !ok {
			return false, fmt.Errorf("%w: $regex needs a string", ErrInvalid)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		return found && anyElement(value, func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}), nil
	case "$not":
		sub, ok := operatorDoc(arg)
		if !ok {
			return false, fmt.Errorf("%w: $not needs an operator document", ErrInvalid)
		}
		for subOp, subArg := range sub {
			ok, err := matchOperator(value, found, subOp, subArg)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("%w: unsupported operator %s", ErrInvalid, op)
}
