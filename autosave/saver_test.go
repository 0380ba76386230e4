package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/richinex/toolsuite/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDelay = 40 * time.Millisecond

// recordingStore wraps an in-memory store and records writes.
type recordingStore struct {
	*storage.InMemoryStorage

	mu     sync.Mutex
	writes []string
	failOn error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{InMemoryStorage: storage.NewInMemoryStorage()}
}

func (r *recordingStore) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	fail := r.failOn
	if fail == nil {
		r.writes = append(r.writes, value)
	}
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.InMemoryStorage.Set(ctx, key, value)
}

func (r *recordingStore) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	fail := r.failOn
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.InMemoryStorage.Delete(ctx, key)
}

func (r *recordingStore) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn = err
}

func (r *recordingStore) Writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

// statusLog collects status transitions.
type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) record(s Status, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) all() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.statuses...)
}

func TestDebounceCoalescesRapidChanges(t *testing.T) {
	store := newRecordingStore()
	saver := New(store, storage.KeyNotes, WithDelay(testDelay))
	defer saver.Close()

	saver.Load(context.Background())
	for _, v := range []string{"h", "he", "hel", "hell", "hello"} {
		saver.Observe(v)
		time.Sleep(testDelay / 8)
	}

	require.Eventually(t, func() bool { return len(store.Writes()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)

	assert.Equal(t, []string{"hello"}, store.Writes())
	value, ok, err := store.Get(context.Background(), storage.KeyNotes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", value)
}

func TestLoadDoesNotWrite(t *testing.T) {
	store := newRecordingStore()
	require.NoError(t, store.InMemoryStorage.Set(context.Background(), storage.KeyNotes, "existing"))

	saver := New(store, storage.KeyNotes, WithDelay(testDelay))
	defer saver.Close()

	assert.Equal(t, "existing", saver.Load(context.Background()))
	// Re-observing the loaded value, as a UI does on mount, arms nothing
	saver.Observe("existing")
	time.Sleep(3 * testDelay)
	assert.Empty(t, store.Writes())
	assert.False(t, saver.Pending())

	saver.Observe("existing, edited")
	require.Eventually(t, func() bool { return len(store.Writes()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "existing, edited", store.Writes()[0])
}

func TestClearBypassesDebounce(t *testing.T) {
	store := newRecordingStore()
	saver := New(store, storage.KeyNotes, WithDelay(testDelay))
	defer saver.Close()

	saver.Load(context.Background())
	saver.Observe("draft")
	require.True(t, saver.Pending())

	saver.Clear(context.Background())
	assert.Equal(t, "", saver.Value())
	assert.Equal(t, StatusCleared, saver.Status())

	_, ok, err := store.Get(context.Background(), storage.KeyNotes)
	require.NoError(t, err)
	assert.False(t, ok, "clear must remove the key immediately")

	time.Sleep(3 * testDelay)
	assert.Empty(t, store.Writes(), "pending write must be discarded")

	fresh := New(store, storage.KeyNotes)
	defer fresh.Close()
	assert.Equal(t, "", fresh.Load(context.Background()))
}

func TestSavedStatusReverts(t *testing.T) {
	store := newRecordingStore()
	log := &statusLog{}
	saver := New(store, storage.KeyNotes,
		WithDelay(testDelay),
		WithSavedWindow(2*testDelay),
		WithStatusFunc(log.record))
	defer saver.Close()

	saver.Load(context.Background())
	saver.Observe("note")

	require.Eventually(t, func() bool { return saver.Status() == StatusSaved }, time.Second, 2*time.Millisecond)
	assert.Equal(t, "Saved", saver.StatusText())
	require.Eventually(t, func() bool { return saver.Status() == StatusIdle }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []Status{StatusPending, StatusSaved, StatusIdle}, log.all())
}

func TestStorageFailureSurfacesAsStatus(t *testing.T) {
	store := newRecordingStore()
	store.failOn = errors.New("quota exceeded")
	saver := New(store, storage.KeyNotes, WithDelay(testDelay))
	defer saver.Close()

	saver.Load(context.Background())
	saver.Observe("too big")

	require.Eventually(t, func() bool { return saver.Status() == StatusError }, time.Second, 5*time.Millisecond)
	assert.Contains(t, saver.StatusText(), "quota exceeded")
	assert.Equal(t, "too big", saver.Value(), "value stays in memory after a failed write")

	saver.Clear(context.Background())
	assert.Equal(t, StatusError, saver.Status())
	assert.Contains(t, saver.StatusText(), "Error clearing")
}

func TestFlushWritesImmediately(t *testing.T) {
	store := newRecordingStore()
	saver := New(store, storage.KeyNotes, WithDelay(time.Hour))
	defer saver.Close()

	saver.Load(context.Background())
	saver.Observe("quick exit")
	saver.Flush(context.Background())

	assert.Equal(t, []string{"quick exit"}, store.Writes())
	assert.False(t, saver.Pending())
}

func TestFlushRetriesFailedWrite(t *testing.T) {
	store := newRecordingStore()
	saver := New(store, storage.KeyNotes, WithDelay(testDelay))
	defer saver.Close()
	ctx := context.Background()

	saver.Load(ctx)
	store.setFail(errors.New("disk full"))
	saver.Observe("keep me")
	require.Eventually(t, func() bool { return saver.Status() == StatusError }, time.Second, 5*time.Millisecond)
	assert.False(t, saver.Pending())

	// An external change must not overwrite text that never reached storage.
	assert.False(t, saver.Sync(ctx, storage.Change{Key: storage.KeyNotes, Op: storage.ChangeRemoved}))

	store.setFail(nil)
	saver.Flush(ctx)

	value, ok, err := store.Get(ctx, storage.KeyNotes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "keep me", value)
	assert.Equal(t, StatusSaved, saver.Status())

	// Nothing left to write.
	saver.Flush(ctx)
	assert.Equal(t, []string{"keep me"}, store.Writes())
}

func TestCloseDropsPendingWrite(t *testing.T) {
	store := newRecordingStore()
	saver := New(store, storage.KeyNotes, WithDelay(testDelay))

	saver.Load(context.Background())
	saver.Observe("never saved")
	saver.Close()
	saver.Observe("ignored")

	time.Sleep(3 * testDelay)
	assert.Empty(t, store.Writes())
}

func TestSyncReloadsExternalChange(t *testing.T) {
	store := newRecordingStore()
	saver := New(store, storage.KeyNotes, WithDelay(testDelay))
	defer saver.Close()
	saver.Load(context.Background())

	require.NoError(t, store.InMemoryStorage.Set(context.Background(), storage.KeyNotes, "from another tab"))
	changed := saver.Sync(context.Background(), storage.Change{Key: storage.KeyNotes, Op: storage.ChangeUpdated})
	assert.True(t, changed)
	assert.Equal(t, "from another tab", saver.Value())

	assert.False(t, saver.Sync(context.Background(), storage.Change{Key: "other"}))

	// Pending local edits win over external changes
	saver.Observe("local edit")
	assert.False(t, saver.Sync(context.Background(), storage.Change{Key: storage.KeyNotes, Op: storage.ChangeRemoved}))
	assert.Equal(t, "local edit", saver.Value())
}
