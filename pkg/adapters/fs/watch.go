package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/simobern/base/pkg/core"
)

// watchWorker turns fsnotify events under the database root into document
// events for one pattern.
type watchWorker struct {
	db      *Database
	pattern string
	watcher *fsnotify.Watcher
	events  chan core.Event
	known   map[string]bool
}

// Watch streams change events for "collection/id" paths matching pattern
// (doublestar syntax) until ctx is cancelled. Changes made by other
// processes are reported too.
func (db *Database) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}
	if err := db.check(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &watchWorker{
		db:      db,
		pattern: pattern,
		watcher: watcher,
		events:  make(chan core.Event, 100),
		known:   make(map[string]bool),
	}
	if err := w.addTree(); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	db.setWatching(1)
	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		db.handleError(fmt.Errorf("watcher panic: %w", err))
	}))
	return w.events, nil
}

// addTree watches the root and every collection directory, and records the
// documents that already exist.
func (w *watchWorker) addTree() error {
	if err := w.watcher.Add(w.db.Path); err != nil {
		return fmt.Errorf("watch %s: %w", w.db.Path, err)
	}
	names, err := w.db.Collections()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := w.addCollection(name); err != nil {
			return err
		}
	}
	return nil
}

func (w *watchWorker) addCollection(name string) error {
	dir := w.db.dir(name)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, id, ok := w.db.resolve(filepath.Join(dir, e.Name())); ok {
			w.known[name+"/"+id] = true
		}
	}
	return nil
}

func (w *watchWorker) run(ctx context.Context) error {
	defer w.db.setWatching(-1)
	defer close(w.events)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			e, send := w.translate(event)
			if !send {
				continue
			}
			w.db.recordEvent()
			select {
			case w.events <- e:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.db.handleError(fmt.Errorf("fsnotify: %w", err))
		}
	}
}

// translate maps a filesystem event to a document event. A rename onto an
// existing document reports a modification.
func (w *watchWorker) translate(event fsnotify.Event) (core.Event, bool) {
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.db.Path) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && checkName(info.Name()) == nil {
			if err := w.addCollection(info.Name()); err != nil {
				w.db.handleError(err)
			}
		}
		return core.Event{}, false
	}

	collection, id, ok := w.db.resolve(event.Name)
	if !ok {
		return core.Event{}, false
	}
	path := collection + "/" + id

	var t core.EventType
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		t = core.EventCreate
		if w.known[path] {
			t = core.EventModify
		}
		w.known[path] = true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if !w.known[path] {
			return core.Event{}, false
		}
		delete(w.known, path)
		t = core.EventDelete
	default:
		return core.Event{}, false
	}

	if match, _ := doublestar.Match(w.pattern, path); !match {
		return core.Event{}, false
	}
	w.db.config.Logger.Debug("fs event", "type", t, "path", path)
	return core.Event{Type: t, Collection: collection, ID: id, Timestamp: time.Now().Unix()}, true
}

func (db *Database) handleError(err error) {
	if db.config.ErrorHandler != nil {
		db.config.ErrorHandler(err)
		return
	}
	db.config.Logger.Error("watch error", "error", err)
}

var _ core.Watchable = (*Database)(nil)
