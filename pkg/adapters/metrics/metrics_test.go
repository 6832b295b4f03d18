package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simobern/base/pkg/adapters/memory"
	"github.com/simobern/base/pkg/adapters/metrics"
	"github.com/simobern/base/pkg/core"
)

// counter returns the value of the counter family name with the given labels.
func counter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, l := range m.GetLabel() {
		if v, ok := labels[l.GetName()]; ok {
			if v != l.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	db := metrics.Instrument(memory.New(), metrics.NewWithRegistry(reg))
	users := db.Collection("users")

	require.NoError(t, users.Insert(ctx, core.Document{"_id": "ada"}))
	assert.ErrorIs(t, users.Insert(ctx, core.Document{"_id": "ada"}), core.ErrDuplicateID)
	_, err := users.FindOne(ctx, core.Document{"_id": "bob"}, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = users.Count(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, counter(t, reg, "base_store_operations_total", map[string]string{"collection": "users", "op": "insert", "outcome": "ok"}))
	assert.Equal(t, 1.0, counter(t, reg, "base_store_operations_total", map[string]string{"op": "insert", "outcome": "duplicate"}))
	assert.Equal(t, 1.0, counter(t, reg, "base_store_operations_total", map[string]string{"op": "find_one", "outcome": "not_found"}))
	assert.Equal(t, 1.0, counter(t, reg, "base_store_operations_total", map[string]string{"op": "count", "outcome": "ok"}))

	_, err = db.Command(ctx, core.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)
	_, err = db.Command(ctx, core.D{{Key: "mapreduce", Value: "users"}})
	assert.ErrorIs(t, err, core.ErrUnsupported)
	assert.Equal(t, 1.0, counter(t, reg, "base_store_commands_total", map[string]string{"command": "ping", "outcome": "ok"}))
	assert.Equal(t, 1.0, counter(t, reg, "base_store_commands_total", map[string]string{"command": "mapreduce", "outcome": "error"}))
}

func TestInstrument_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := prometheus.NewRegistry()
	db := metrics.Instrument(memory.New(), metrics.NewWithRegistry(reg))

	events, err := db.Watch(ctx, "**")
	require.NoError(t, err)
	require.NoError(t, db.Collection("users").Insert(ctx, core.Document{"_id": "ada"}))

	select {
	case e := <-events:
		assert.Equal(t, core.EventCreate, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	assert.Equal(t, 1.0, counter(t, reg, "base_store_watch_events_total", map[string]string{"collection": "users", "type": "CREATE"}))
}

type plainDB struct{ core.Database }

func TestInstrument_WatchUnsupported(t *testing.T) {
	db := metrics.Instrument(plainDB{memory.New()}, metrics.NewWithRegistry(prometheus.NewRegistry()))
	_, err := db.Watch(context.Background(), "**")
	assert.ErrorIs(t, err, core.ErrUnsupported)
}
