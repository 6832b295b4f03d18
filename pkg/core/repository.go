package core

import "context"

// Database is the backing store handle injected into sessions.
// It hands out collections and runs database-level commands.
type Database interface {
	// Collection returns a handle on the named collection. It never fails;
	// collections are created on first write.
	Collection(name string) Collection

	// Command runs a database command (e.g. mapreduce). The first key of cmd
	// names the command.
	Command(ctx context.Context, cmd D) (Document, error)

	// Close releases the underlying connection or resources.
	Close(ctx context.Context) error
}

// Collection is the synchronous driver interface for a single named partition
// of documents.
type Collection interface {
	Name() string

	// Find returns a lazily consumed result set for query.
	Find(ctx context.Context, query Document, opts FindOptions) (ResultSet, error)

	// FindOne returns the first matching document or ErrNotFound.
	FindOne(ctx context.Context, query Document, fields Document) (Document, error)

	// Insert stores a new document. The document must carry an "_id".
	Insert(ctx context.Context, doc Document) error

	// Save replaces the document with the same "_id", inserting it when missing.
	Save(ctx context.Context, doc Document) error

	// Update modifies documents matching query and reports how many matched.
	// A doc without operator keys ("$set", ...) replaces the match.
	Update(ctx context.Context, query Document, doc Document, opts UpdateOptions) (int64, error)

	// Remove deletes documents matching query and reports how many were removed.
	Remove(ctx context.Context, query Document, opts RemoveOptions) (int64, error)

	Count(ctx context.Context, query Document) (int64, error)

	// Distinct returns the distinct values for key. Adapters return whatever
	// the store returned; callers must not assume a list.
	Distinct(ctx context.Context, key string, query Document) (any, error)

	// Aggregate runs the pipeline stages in order.
	Aggregate(ctx context.Context, pipeline []Document) ([]Document, error)
}

// ResultSet is a forward-only stream of raw documents.
type ResultSet interface {
	Next(ctx context.Context) bool
	Document() Document
	Err() error
	Close(ctx context.Context) error
}

// FindOptions configures Find.
type FindOptions struct {
	Fields Document
	Sort   D
	Skip   int64
	Limit  int64
}

// UpdateOptions configures Update.
type UpdateOptions struct {
	Upsert bool
	Multi  bool
}

// RemoveOptions configures Remove.
type RemoveOptions struct {
	JustOne bool
}

// IDGenerator generates opaque identities for new documents.
type IDGenerator interface {
	New() string
}

// Watchable defines an interface for databases that can stream change events.
type Watchable interface {
	// Watch emits change events for documents whose "collection/id" path
	// matches pattern until ctx is cancelled.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

type contextKey string

// RequestIDKey is the context key under which callers may pass a request id;
// adapters include it in their log lines.
const RequestIDKey contextKey = "request_id"
