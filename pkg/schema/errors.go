package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation error")
	// ErrSchema matches every *SchemaError via errors.Is.
	ErrSchema = errors.New("schema error")
)

// ValidationError reports a value rejected by a Type.
type ValidationError struct {
	Model    string
	Field    string
	Index    int // element index for array fields, -1 otherwise
	Expected string
	Got      string
	Reason   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("Type error")
	if e.Field != "" {
		if e.Model != "" {
			fmt.Fprintf(&b, " on %s.%s", e.Model, e.Field)
		} else {
			fmt.Fprintf(&b, " on %s", e.Field)
		}
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Index)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Expected != "" {
		fmt.Fprintf(&b, ", expected %s", e.Expected)
	}
	if e.Got != "" {
		fmt.Fprintf(&b, ", got %s", e.Got)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SchemaError reports access to an undeclared field or an invalid declaration.
// It signals a programming error.
type SchemaError struct {
	Model  string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error on %s.%s: %s", e.Model, e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// Annotate fills in the model and field of a validation error returned by Check.
func Annotate(err error, model, field string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Model = model
		ve.Field = field
	}
	return err
}
