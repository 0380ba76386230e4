// Package autosave defers writes of a single text value to durable storage
// until input has been quiet for a fixed interval.
//
// Information Hiding:
// - Trailing-edge debounce timer management
// - Write-after-load guard
// - Save-status transitions and the transient "saved" window
// - Storage failures, which surface as status and never as errors

package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/richinex/toolsuite/storage"
	"go.uber.org/zap"
)

// Defaults mirror the notes widget.
const (
	DefaultDelay        = 1000 * time.Millisecond
	DefaultSavedWindow  = 2000 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

// Status is the save state reported to the caller.
type Status int

const (
	// StatusIdle means nothing is pending and no transient status is shown.
	StatusIdle Status = iota
	// StatusPending means a change is waiting for the quiet period to elapse.
	StatusPending
	// StatusSaved is shown for the saved window after a successful write.
	StatusSaved
	// StatusCleared means the stored value was removed.
	StatusCleared
	// StatusError means the last storage operation failed.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSaved:
		return "saved"
	case StatusCleared:
		return "cleared"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusFunc receives every status transition with its display text.
// It is called with the Saver's lock held and must not call back into the Saver.
type StatusFunc func(status Status, text string)

// Saver debounces writes of one value under one storage key.
// All methods are safe for concurrent use.
type Saver struct {
	store        storage.KeyValueStore
	key          string
	delay        time.Duration
	savedWindow  time.Duration
	writeTimeout time.Duration
	onStatus     StatusFunc
	logger       *zap.Logger

	mu         sync.Mutex
	value      string
	persisted  string // last value loaded from or written to storage
	pending    bool
	unsaved    bool // the last write failed; Flush retries it
	timer      *time.Timer
	revert     *time.Timer
	gen        uint64 // invalidates timers armed before the latest change
	status     Status
	statusText string
	statusGen  uint64
	closed     bool
}

// Option configures a Saver.
type Option func(*Saver)

// WithDelay sets the quiet period before a write.
func WithDelay(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithSavedWindow sets how long StatusSaved is shown before reverting to idle.
func WithSavedWindow(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.savedWindow = d
		}
	}
}

// WithStatusFunc registers a status callback.
func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Saver) { s.onStatus = fn }
}

// WithLogger sets the logger for storage failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Saver for key. Call Load before the first Observe.
func New(store storage.KeyValueStore, key string, opts ...Option) *Saver {
	s := &Saver{
		store:        store,
		key:          key,
		delay:        DefaultDelay,
		savedWindow:  DefaultSavedWindow,
		writeTimeout: DefaultWriteTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the stored value synchronously. It never schedules a write.
// A missing key or failed read yields "".
func (s *Saver) Load(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()

	value, _, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("autosave load failed", zap.String("key", s.key), zap.Error(err))
		s.setStatusLocked(StatusError, fmt.Sprintf("Error loading: %v", err))
		value = ""
	}
	s.value = value
	s.persisted = value
	s.unsaved = false
	return value
}

// Observe records a new value and (re)arms the debounce timer.
// A value equal to what storage already holds arms nothing.
func (s *Saver) Observe(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.value = value
	if !s.pending && value == s.persisted {
		s.unsaved = false
		return
	}

	s.cancelPendingLocked()
	gen := s.gen
	s.pending = true
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	s.setStatusLocked(StatusPending, "Saving...")
}

// Flush writes a pending value, or one whose last write failed, immediately.
func (s *Saver) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (!s.pending && !s.unsaved) {
		return
	}
	s.cancelPendingLocked()
	s.commitLocked(ctx)
}

// Clear deletes the stored value and resets the in-memory value at once,
// discarding any pending write.
func (s *Saver) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	s.value = ""

	if err := s.store.Delete(ctx, s.key); err != nil {
		s.logger.Warn("autosave clear failed", zap.String("key", s.key), zap.Error(err))
		s.setStatusLocked(StatusError, fmt.Sprintf("Error clearing: %v", err))
		return
	}
	s.persisted = ""
	s.unsaved = false
	s.setStatusLocked(StatusCleared, "Cleared")
}

// Sync reloads the value after an external storage change for this key.
// Local edits not yet stored win; it reports whether the in-memory value changed.
func (s *Saver) Sync(ctx context.Context, change storage.Change) bool {
	if change.Key != s.key {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pending || s.unsaved {
		return false
	}

	value := ""
	if change.Op == storage.ChangeUpdated {
		v, _, err := s.store.Get(ctx, s.key)
		if err != nil {
			s.logger.Warn("autosave sync failed", zap.String("key", s.key), zap.Error(err))
			return false
		}
		value = v
	}

	if value == s.value {
		return false
	}
	s.value = value
	s.persisted = value
	return true
}

// Value returns the latest observed value.
func (s *Saver) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Pending reports whether a write is waiting for the quiet period.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Status returns the current status.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StatusText returns the display text for the current status.
func (s *Saver) StatusText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusText
}

// Close stops all timers. A pending value is dropped; call Flush first to keep it.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	if s.revert != nil {
		s.revert.Stop()
		s.revert = nil
	}
	s.closed = true
}

func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen || !s.pending {
		return
	}
	s.timer = nil

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	s.commitLocked(ctx)
}

func (s *Saver) commitLocked(ctx context.Context) {
	s.pending = false
	value := s.value

	if err := s.store.Set(ctx, s.key, value); err != nil {
		s.logger.Warn("autosave write failed", zap.String("key", s.key), zap.Error(err))
		s.unsaved = true
		s.setStatusLocked(StatusError, fmt.Sprintf("Error saving: %v", err))
		return
	}
	s.persisted = value
	s.unsaved = false
	s.setStatusLocked(StatusSaved, "Saved")

	statusGen := s.statusGen
	s.revert = time.AfterFunc(s.savedWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.statusGen != statusGen {
			return
		}
		s.setStatusLocked(StatusIdle, "")
	})
}

// cancelPendingLocked stops the debounce timer and invalidates it if it already fired.
func (s *Saver) cancelPendingLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

func (s *Saver) setStatusLocked(status Status, text string) {
	s.statusGen++
	s.status = status
	s.statusText = text
	if s.onStatus != nil {
		s.onStatus(status, text)
	}
}
