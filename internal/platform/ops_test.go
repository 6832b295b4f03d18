package platform_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simobern/base/internal/platform"
	"github.com/simobern/base/pkg/adapters/fs"
	"github.com/simobern/base/pkg/adapters/memory"
	"github.com/simobern/base/pkg/adapters/metrics"
	"github.com/simobern/base/pkg/core"
)

func TestAdapterFor(t *testing.T) {
	tests := []struct {
		uri, explicit, want string
	}{
		{"", "", "memory"},
		{"memory://", "", "memory"},
		{"mongodb://localhost/app", "", "mongo"},
		{"mongodb+srv://cluster/app", "", "mongo"},
		{"./data", "", "fs"},
		{"./data", "memory", "memory"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, platform.AdapterFor(tt.uri, tt.explicit), tt.uri)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("memory by default", func(t *testing.T) {
		sess, err := platform.New(ctx, "")
		require.NoError(t, err)
		assert.IsType(t, &memory.Database{}, sess.Database())
		assert.NotNil(t, sess.Registry())
	})

	t.Run("fs with read-only session", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		_, err := platform.New(ctx, dir, platform.WithFormat("yaml"))
		require.NoError(t, err)

		sess, err := platform.New(ctx, dir, platform.WithReadOnly(true))
		require.NoError(t, err)
		assert.IsType(t, &fs.Database{}, sess.Database())
		assert.True(t, sess.IsReadOnly())
	})

	t.Run("fs must exist", func(t *testing.T) {
		_, err := platform.New(ctx, filepath.Join(t.TempDir(), "missing"), platform.WithMustExist(true))
		assert.Error(t, err)
	})

	t.Run("injected database with metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		sess, err := platform.New(ctx, "ignored", platform.WithDatabase(memory.New()), platform.WithMetrics(reg))
		require.NoError(t, err)
		require.IsType(t, &metrics.Database{}, sess.Database())

		require.NoError(t, sess.Database().Collection("users").Insert(ctx, core.Document{"_id": "a"}))
		families, err := reg.Gather()
		require.NoError(t, err)
		assert.NotEmpty(t, families)
	})

	t.Run("unknown adapter", func(t *testing.T) {
		_, err := platform.New(ctx, "", platform.WithAdapter("s3"))
		assert.ErrorContains(t, err, "unknown adapter")
	})
}

func TestOpen(t *testing.T) {
	db, err := platform.Open(context.Background(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &memory.Database{}, db)
	require.NoError(t, db.Close(context.Background()))
}
