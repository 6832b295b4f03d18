package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/simobern/base/pkg/core"
)

// hub fans out change events to watchers. Slow watchers drop events.
type hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	pattern string
	ch      chan core.Event
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]struct{})}
}

func (h *hub) subscribe(pattern string) (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, core.ErrClosed
	}
	s := &subscriber{pattern: pattern, ch: make(chan core.Event, 100)}
	h.subs[s] = struct{}{}
	return s, nil
}

func (h *hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *hub) publish(e core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	path := e.Collection + "/" + e.ID
	for s := range h.subs {
		if ok, _ := doublestar.Match(s.pattern, path); !ok {
			continue
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Watch streams change events for "collection/id" paths matching pattern
// (doublestar syntax, e.g. "users/*" or "**") until ctx is cancelled.
func (db *Database) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}
	s, err := db.watchers.subscribe(pattern)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		db.watchers.unsubscribe(s)
	}()
	return s.ch, nil
}

var _ core.Watchable = (*Database)(nil)
