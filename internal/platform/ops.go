package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simobern/base/pkg/adapters/fs"
	"github.com/simobern/base/pkg/adapters/memory"
	"github.com/simobern/base/pkg/adapters/metrics"
	"github.com/simobern/base/pkg/adapters/mongo"
	"github.com/simobern/base/pkg/core"
)

// Open returns the database addressed by uri without wrapping it in a
// session. Callers own the returned database and must Close it.
func Open(ctx context.Context, uri string, opts ...Option) (core.Database, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return open(ctx, uri, o)
}

func open(ctx context.Context, uri string, o *options) (core.Database, error) {
	db := o.database
	if db == nil {
		var err error
		switch adapter := AdapterFor(uri, o.adapter); adapter {
		case "memory":
			db = initMemory(o)
		case "fs":
			db, err = initFS(ctx, uri, o)
		case "mongo":
			db, err = initMongo(ctx, uri, o)
		default:
			return nil, fmt.Errorf("unknown adapter: %s", adapter)
		}
		if err != nil {
			return nil, err
		}
	}

	if o.metrics != nil {
		db = metrics.Instrument(db, metrics.NewWithRegistry(o.metrics))
	}
	return db, nil
}

// AdapterFor returns the adapter name for uri. An explicit name wins.
func AdapterFor(uri, explicit string) string {
	switch {
	case explicit != "":
		return explicit
	case uri == "", strings.HasPrefix(uri, "memory://"):
		return "memory"
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return "mongo"
	}
	return "fs"
}

func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

func initMemory(o *options) core.Database {
	opts := []memory.Option{memory.WithLogger(o.log())}
	if o.ids != nil {
		opts = append(opts, memory.WithIDGenerator(o.ids))
	}
	return memory.New(opts...)
}

// initFS handles the initialization logic for the filesystem adapter.
func initFS(ctx context.Context, path string, o *options) (core.Database, error) {
	path = strings.TrimPrefix(path, "file://")
	db, err := fs.New(fs.Config{
		Path:         path,
		Format:       o.format,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Logger:       o.log(),
		IDGenerator:  o.ids,
		ErrorHandler: o.errorHandler,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		return nil, err
	}
	o.log().Debug("opened fs database", "path", path, "read_only", o.readOnly)
	return db, nil
}

func initMongo(ctx context.Context, uri string, o *options) (core.Database, error) {
	if o.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.connectTimeout)
		defer cancel()
	}
	return mongo.Connect(ctx, mongo.Config{URI: uri, Logger: o.log()})
}
