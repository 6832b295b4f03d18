package base

import (
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/store"
	"github.com/simobern/base/pkg/typed"
)

// TypedRepository returns concrete model types instead of model.Model.
type TypedRepository[T model.Model] = typed.Repository[T]

// TypedCursor is a cursor that yields T.
type TypedCursor[T model.Model] = typed.Cursor[T]

// Open returns the typed repository of T. T must be registered with the
// session registry; the collection defaults to the one T declares.
func Open[T model.Model](s *store.Session, collection ...string) (*TypedRepository[T], error) {
	return typed.Open[T](s, collection...)
}
