package model_test

import (
	"context"
	"sync/atomic"

	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/schema"
)

var Color = model.MustEnum("Color",
	model.Member("RED", "red"),
	model.Member("GREEN", "green"),
	model.Member("BLUE", "blue"),
)

var declared atomic.Int32

type User struct{ model.Base }

func (*User) Collection() string { return "users" }

func (*User) DeclareTypes(d *schema.Declaration) {
	declared.Add(1)
	d.Field("name", schema.String())
	d.Field("age", schema.Int().Nullable())
	d.Field("tags", schema.String().Array())
	d.Field("address", schema.Model("Address").Nullable())
	d.Field("friends", schema.Model("User").Array())
	d.Field("best", schema.Model("User").Nullable())
	d.Field("color", schema.Enum("Color").Nullable())
	d.Field("palette", schema.Enum("Color").Array())
	d.Field("extra", schema.Any().Nullable())
}

type Address struct{ model.Base }

func (*Address) DeclareTypes(d *schema.Declaration) {
	d.Field("street", schema.String())
	d.Field("city", schema.String().Nullable())
}

type Counter struct {
	model.Base
	inits int
}

func (*Counter) ModelName() string  { return "counter" }
func (*Counter) Collection() string { return "counters" }

func (*Counter) DeclareTypes(d *schema.Declaration) {
	d.Field("n", schema.Int())
}

func (c *Counter) Init() {
	c.inits++
	_ = c.Set("n", 0)
}

func newRegistry() *model.Registry {
	reg := model.NewRegistry()
	if err := reg.RegisterEnum(Color); err != nil {
		panic(err)
	}
	if err := reg.Register(&User{}, &Address{}, &Counter{}); err != nil {
		panic(err)
	}
	return reg
}

// fakeLoader serves documents from a map and counts fetches.
type fakeLoader struct {
	docs  map[string]core.Document
	calls int
	err   error
}

func (l *fakeLoader) Load(_ context.Context, collection, id string) (core.Document, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	doc, ok := l.docs[collection+"/"+id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return doc.Clone(), nil
}
