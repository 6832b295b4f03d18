// Package idgen provides identity generators for new documents.
package idgen

import (
	"io"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/simobern/base/pkg/core"
)

// ULID generates lexically sortable identities. It is the default generator.
type ULID struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULID creates a ULID generator with monotonic entropy.
func NewULID() *ULID {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &ULID{entropy: ulid.Monotonic(src, 0)}
}

// New generates the next ULID.
func (g *ULID) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// UUID generates random UUIDs.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset resets the counter.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

// ByName returns the generator registered under name: "ulid", "uuid" or "seq".
func ByName(name string) (core.IDGenerator, bool) {
	switch name {
	case "", "ulid":
		return NewULID(), true
	case "uuid":
		return UUID{}, true
	case "seq", "sequential":
		return NewSequential(""), true
	}
	return nil, false
}

// Ensure interface compliance.
var (
	_ core.IDGenerator = (*ULID)(nil)
	_ core.IDGenerator = UUID{}
	_ core.IDGenerator = (*Sequential)(nil)
)
