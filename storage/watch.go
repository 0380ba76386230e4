// Storage change notifications for directory stores.
//
// Information Hiding:
// - fsnotify watcher lifecycle
// - Mapping of file events back to storage keys

package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeOp describes what happened to a key.
type ChangeOp int

const (
	// ChangeUpdated means the key was written.
	ChangeUpdated ChangeOp = iota
	// ChangeRemoved means the key was deleted.
	ChangeRemoved
)

// String returns the string representation of the op.
func (op ChangeOp) String() string {
	if op == ChangeRemoved {
		return "removed"
	}
	return "updated"
}

// Change is a single key-level storage event.
type Change struct {
	Key string
	Op  ChangeOp
}

// Watcher reports changes made to a DirStorage directory, including changes
// made by other processes sharing the directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan Change
	logger  *zap.Logger
}

// NewWatcher starts watching the store's directory.
func NewWatcher(store *DirStorage, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(store.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", store.Dir(), err)
	}
	return &Watcher{
		watcher: fw,
		changes: make(chan Change, 16),
		logger:  logger,
	}, nil
}

// Changes returns the change stream. It is closed when Run returns.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Run forwards events until ctx is canceled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.changes)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			change, ok := changeFromEvent(event)
			if !ok {
				continue
			}
			select {
			case w.changes <- change:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("storage watcher error", zap.Error(err))
		}
	}
}

func changeFromEvent(event fsnotify.Event) (Change, bool) {
	key, ok := keyForFileName(filepath.Base(event.Name))
	if !ok {
		return Change{}, false
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{Key: key, Op: ChangeRemoved}, true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return Change{Key: key, Op: ChangeUpdated}, true
	default:
		return Change{}, false
	}
}
