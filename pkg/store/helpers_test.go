package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simobern/base/pkg/adapters/memory"
	"github.com/simobern/base/pkg/core"
	"github.com/simobern/base/pkg/idgen"
	"github.com/simobern/base/pkg/model"
	"github.com/simobern/base/pkg/schema"
	"github.com/simobern/base/pkg/store"
)

type User struct{ model.Base }

func (*User) Collection() string { return "users" }

func (*User) DeclareTypes(d *schema.Declaration) {
	d.Field("name", schema.String())
	d.Field("age", schema.Int().Nullable())
	d.Field("address", schema.Model("Address").Nullable())
}

type Address struct{ model.Base }

func (*Address) DeclareTypes(d *schema.Declaration) {
	d.Field("city", schema.String())
}

type Post struct{ model.Base }

func (*Post) Collection() string { return "posts" }

func (*Post) DeclareTypes(d *schema.Declaration) {
	d.Field("title", schema.String())
	d.Field("author", schema.Model("User").Nullable())
}

// spyDB wraps a database and counts collection calls per operation.
type spyDB struct {
	core.Database
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newSpy(db core.Database) *spyDB {
	return &spyDB{Database: db, calls: map[string]int{}, fail: map[string]error{}}
}

func (s *spyDB) Collection(name string) core.Collection {
	return &spyCollection{Collection: s.Database.Collection(name), spy: s}
}

func (s *spyDB) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail[op]
}

func (s *spyDB) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

type spyCollection struct {
	core.Collection
	spy *spyDB
}

func (c *spyCollection) Find(ctx context.Context, q core.Document, opts core.FindOptions) (core.ResultSet, error) {
	if err := c.spy.record("find"); err != nil {
		return nil, err
	}
	return c.Collection.Find(ctx, q, opts)
}

func (c *spyCollection) FindOne(ctx context.Context, q, fields core.Document) (core.Document, error) {
	if err := c.spy.record("findOne"); err != nil {
		return nil, err
	}
	return c.Collection.FindOne(ctx, q, fields)
}

func (c *spyCollection) Insert(ctx context.Context, doc core.Document) error {
	if err := c.spy.record("insert"); err != nil {
		return err
	}
	return c.Collection.Insert(ctx, doc)
}

func (c *spyCollection) Save(ctx context.Context, doc core.Document) error {
	if err := c.spy.record("save"); err != nil {
		return err
	}
	return c.Collection.Save(ctx, doc)
}

func (c *spyCollection) Count(ctx context.Context, q core.Document) (int64, error) {
	if err := c.spy.record("count"); err != nil {
		return 0, err
	}
	return c.Collection.Count(ctx, q)
}

func (c *spyCollection) Distinct(ctx context.Context, key string, q core.Document) (any, error) {
	if err := c.spy.record("distinct"); err != nil {
		return nil, err
	}
	return c.Collection.Distinct(ctx, key, q)
}

func (c *spyCollection) Aggregate(ctx context.Context, p []core.Document) ([]core.Document, error) {
	if err := c.spy.record("aggregate"); err != nil {
		return nil, err
	}
	return c.Collection.Aggregate(ctx, p)
}

type fixture struct {
	reg   *model.Registry
	spy   *spyDB
	sess  *store.Session
	users *store.Repository
	posts *store.Repository
}

func setup(t *testing.T, opts ...store.Option) *fixture {
	t.Helper()
	reg := model.NewRegistry()
	require.NoError(t, reg.Register(&User{}, &Address{}, &Post{}))
	require.NoError(t, reg.Validate())

	spy := newSpy(memory.New())
	opts = append([]store.Option{store.WithIDGenerator(idgen.NewSequential("id-"))}, opts...)
	sess := store.NewSession(spy, reg, opts...)

	users, err := sess.Repository(&User{})
	require.NoError(t, err)
	posts, err := sess.Repository(&Post{})
	require.NoError(t, err)
	return &fixture{reg: reg, spy: spy, sess: sess, users: users, posts: posts}
}

func (f *fixture) user(t *testing.T, name string, age int) *User {
	t.Helper()
	u, err := model.New[*User](f.reg)
	require.NoError(t, err)
	require.NoError(t, u.Set("name", name))
	require.NoError(t, u.Set("age", age))
	return u
}
