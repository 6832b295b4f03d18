package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/simobern/base/pkg/core"
)

// DefaultDatabase is used when the connection URI names no database.
const DefaultDatabase = "base"

// Config holds the connection settings.
type Config struct {
	// URI is a standard connection string, e.g. "mongodb://user:pw@host:27017/app".
	URI string
	// Database overrides the database named in URI.
	Database string
	Logger   *slog.Logger
}

// Database implements core.Database on a MongoDB database.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	name   string
	host   string
	logger *slog.Logger
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, cfg Config) (*Database, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	name, host, err := parseURI(cfg.URI)
	if err != nil {
		return nil, err
	}
	if cfg.Database != "" {
		name = cfg.Database
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at %s: %w", host, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", host, err)
	}
	cfg.Logger.Info("connected to mongodb", "host", host, "database", name)

	return &Database{
		client: client,
		db:     client.Database(name),
		name:   name,
		host:   host,
		logger: cfg.Logger,
	}, nil
}

// parseURI returns the database name and a printable host for uri. The
// printable form never contains credentials.
func parseURI(uri string) (name, host string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid mongodb uri: %w", errors.Unwrap(err))
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", "", fmt.Errorf("invalid mongodb uri scheme %q", u.Scheme)
	}
	name = strings.TrimPrefix(u.Path, "/")
	if name == "" {
		name = DefaultDatabase
	}
	return name, u.Host, nil
}

func (d *Database) Name() string { return d.name }

// Collection returns a handle on the named collection.
func (d *Database) Collection(name string) core.Collection {
	return &Collection{coll: d.db.Collection(name), logger: d.logger}
}

// Command runs cmd with RunCommand. Server-side functions are sent as
// JavaScript values.
func (d *Database) Command(ctx context.Context, cmd core.D) (core.Document, error) {
	var res bson.M
	if err := d.db.RunCommand(ctx, toBSON(cmd)).Decode(&res); err != nil {
		return nil, fmt.Errorf("command %s: %w", commandName(cmd), err)
	}
	doc, _ := fromBSON(res).(core.Document)
	return doc, nil
}

func commandName(cmd core.D) string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0].Key
}

// Close disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// DatabaseState exposes connection details for observability.
type DatabaseState struct {
	Host     string `json:"host"`
	Database string `json:"database"`
}

// State implements introspection.Introspectable.
func (d *Database) State() any {
	return DatabaseState{Host: d.host, Database: d.name}
}

// ComponentType implements introspection.Component.
func (d *Database) ComponentType() string {
	return "mongo-database"
}

var _ core.Database = (*Database)(nil)
