package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/simobern/base/pkg/core"
)

type watchSource struct {
	db      core.Watchable
	pattern string
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits the change events of db
// for "collection/id" paths matching pattern.
func NewSource(db core.Watchable, pattern string) lifecycle.Source {
	return &watchSource{
		db:      db,
		pattern: pattern,
		out:     make(chan lifecycle.Event),
	}
}

func (s *watchSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes to the database and forwards events until ctx is done or
// the subscription ends.
func (s *watchSource) Start(ctx context.Context) error {
	events, err := s.db.Watch(ctx, s.pattern)
	if err != nil {
		close(s.out)
		return err
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
