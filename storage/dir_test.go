package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirStorageRoundTrip(t *testing.T) {
	store, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, "team/notes", "line one\nline two"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := store.Get(ctx, "team/notes")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if value != "line one\nline two" {
		t.Errorf("unexpected value %q", value)
	}

	// The slash is escaped, not treated as a subdirectory
	if _, err := os.Stat(filepath.Join(store.Dir(), "team%2Fnotes.val")); err != nil {
		t.Errorf("expected escaped file name: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "team/notes" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestDirStorageDeleteMissing(t *testing.T) {
	store, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	if err := store.Delete(context.Background(), KeyNotes); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestDirStorageLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := store.Set(context.Background(), KeyNotes, "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly one file, got %d", len(entries))
	}
}

func TestDirStorageDotKeyIsListed(t *testing.T) {
	store, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, ".hidden", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "%2Ehidden.val")); err != nil {
		t.Errorf("expected escaped leading dot: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != ".hidden" {
		t.Errorf("unexpected keys %v", keys)
	}

	value, ok, err := store.Get(ctx, ".hidden")
	if err != nil || !ok || value != "v" {
		t.Errorf("Get = %q, %v, %v", value, ok, err)
	}
}

func TestKeyForFileNameIgnoresForeignFiles(t *testing.T) {
	for _, name := range []string{".tmp-123", "README.md", ".val"} {
		if _, ok := keyForFileName(name); ok {
			t.Errorf("expected %q to be ignored", name)
		}
	}
}

func TestWatcherReportsExternalWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	w, err := NewWatcher(store, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// A second handle on the same directory stands in for another process.
	other, _ := OpenDir(dir)
	if err := other.Set(context.Background(), KeyNotes, "from elsewhere"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case change := <-w.Changes():
		if change.Key != KeyNotes || change.Op != ChangeUpdated {
			t.Errorf("unexpected change %+v", change)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}
