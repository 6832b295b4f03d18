// Package metrics instruments a core.Database with Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/simobern/base/pkg/core"
)

// Collector holds the store metrics.
type Collector struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CommandsTotal     *prometheus.CounterVec
	WatchEvents       *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "base",
				Name:      "store_operations_total",
				Help:      "Total number of collection operations",
			},
			[]string{"collection", "op", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "base",
				Name:      "store_operation_duration_seconds",
				Help:      "Collection operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"collection", "op"},
		),
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "base",
				Name:      "store_commands_total",
				Help:      "Total number of database commands",
			},
			[]string{"command", "outcome"},
		),
		WatchEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "base",
				Name:      "store_watch_events_total",
				Help:      "Total number of change events delivered to watchers",
			},
			[]string{"collection", "type"},
		),
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrDuplicateID):
		return "duplicate"
	case errors.Is(err, core.ErrReadOnly):
		return "read_only"
	}
	return "error"
}

func (c *Collector) observe(collection, op string, start time.Time, err error) {
	c.OperationsTotal.WithLabelValues(collection, op, outcome(err)).Inc()
	c.OperationDuration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}

// Instrument wraps db so every collection operation and command is counted
// and timed.
func Instrument(db core.Database, c *Collector) *Database {
	return &Database{inner: db, metrics: c}
}

// Database is an instrumented core.Database.
type Database struct {
	inner   core.Database
	metrics *Collector
}

// Unwrap returns the instrumented database.
func (d *Database) Unwrap() core.Database { return d.inner }

func (d *Database) Collection(name string) core.Collection {
	return &Collection{inner: d.inner.Collection(name), metrics: d.metrics}
}

func (d *Database) Command(ctx context.Context, cmd core.D) (core.Document, error) {
	res, err := d.inner.Command(ctx, cmd)
	name := ""
	if len(cmd) > 0 {
		name = cmd[0].Key
	}
	d.metrics.CommandsTotal.WithLabelValues(name, outcome(err)).Inc()
	return res, err
}

func (d *Database) Close(ctx context.Context) error {
	return d.inner.Close(ctx)
}

// Watch counts the events of the wrapped database. It fails when that
// database cannot be watched.
func (d *Database) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	w, ok := d.inner.(core.Watchable)
	if !ok {
		return nil, fmt.Errorf("watch: %w", core.ErrUnsupported)
	}
	in, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}
	out := make(chan core.Event)
	go func() {
		defer close(out)
		for e := range in {
			d.metrics.WatchEvents.WithLabelValues(e.Collection, string(e.Type)).Inc()
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// State reports the state of the wrapped database when it has one.
func (d *Database) State() any {
	if s, ok := d.inner.(interface{ State() any }); ok {
		return s.State()
	}
	return nil
}

// Collection is an instrumented core.Collection.
type Collection struct {
	inner   core.Collection
	metrics *Collector
}

func (c *Collection) Name() string { return c.inner.Name() }

// track starts timing op; call the result with the outcome.
func (c *Collection) track(op string) func(error) {
	start := time.Now()
	return func(err error) {
		c.metrics.observe(c.inner.Name(), op, start, err)
	}
}

func (c *Collection) Find(ctx context.Context, q core.Document, opts core.FindOptions) (core.ResultSet, error) {
	done := c.track("find")
	rs, err := c.inner.Find(ctx, q, opts)
	done(err)
	return rs, err
}

func (c *Collection) FindOne(ctx context.Context, q, fields core.Document) (core.Document, error) {
	done := c.track("find_one")
	doc, err := c.inner.FindOne(ctx, q, fields)
	done(err)
	return doc, err
}

func (c *Collection) Insert(ctx context.Context, doc core.Document) error {
	done := c.track("insert")
	err := c.inner.Insert(ctx, doc)
	done(err)
	return err
}

func (c *Collection) Save(ctx context.Context, doc core.Document) error {
	done := c.track("save")
	err := c.inner.Save(ctx, doc)
	done(err)
	return err
}

func (c *Collection) Update(ctx context.Context, q, doc core.Document, opts core.UpdateOptions) (int64, error) {
	done := c.track("update")
	n, err := c.inner.Update(ctx, q, doc, opts)
	done(err)
	return n, err
}

func (c *Collection) Remove(ctx context.Context, q core.Document, opts core.RemoveOptions) (int64, error) {
	done := c.track("remove")
	n, err := c.inner.Remove(ctx, q, opts)
	done(err)
	return n, err
}

func (c *Collection) Count(ctx context.Context, q core.Document) (int64, error) {
	done := c.track("count")
	n, err := c.inner.Count(ctx, q)
	done(err)
	return n, err
}

func (c *Collection) Distinct(ctx context.Context, key string, q core.Document) (any, error) {
	done := c.track("distinct")
	v, err := c.inner.Distinct(ctx, key, q)
	done(err)
	return v, err
}

func (c *Collection) Aggregate(ctx context.Context, pipeline []core.Document) ([]core.Document, error) {
	done := c.track("aggregate")
	out, err := c.inner.Aggregate(ctx, pipeline)
	done(err)
	return out, err
}

var (
	_ core.Database   = (*Database)(nil)
	_ core.Watchable  = (*Database)(nil)
	_ core.Collection = (*Collection)(nil)
)
