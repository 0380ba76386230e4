package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/richinex/toolsuite/autosave"
	"github.com/richinex/toolsuite/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NotesShow prints the stored notes.
func NotesShow(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, _, err := rt.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	saver := autosave.New(store, storage.KeyNotes, autosave.WithLogger(rt.logger))
	defer saver.Close()

	text := saver.Load(ctx)
	if saver.Status() == autosave.StatusError {
		return fmt.Errorf("%s", saver.StatusText())
	}
	if text == "" {
		rt.printf("(no notes)\n")
		return nil
	}
	rt.printf("%s\n", text)
	return nil
}

// NotesClear deletes the stored notes.
func NotesClear(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, _, err := rt.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	saver := autosave.New(store, storage.KeyNotes, autosave.WithLogger(rt.logger))
	defer saver.Close()

	saver.Load(ctx)
	saver.Clear(ctx)
	if saver.Status() == autosave.StatusError {
		return fmt.Errorf("%s", saver.StatusText())
	}
	rt.printf("%s\n", saver.StatusText())
	return nil
}

// Editor commands recognized on their own line.
const (
	editorQuit  = ":q"
	editorClear = ":clear"
	editorShow  = ":show"
	editorUndo  = ":undo"
)

// NotesEdit appends lines read from In to the notes, autosaving after each
// quiet period. With the dir backend, edits made by other processes are
// picked up while no local edit is pending.
func NotesEdit(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, dir, err := rt.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	saver := autosave.New(store, storage.KeyNotes,
		autosave.WithDelay(rt.settings.Autosave.Delay),
		autosave.WithSavedWindow(rt.settings.Autosave.SavedWindow),
		autosave.WithLogger(rt.logger),
		autosave.WithStatusFunc(func(status autosave.Status, text string) {
			if status != autosave.StatusIdle && status != autosave.StatusPending {
				rt.logger.Debug("notes status", zap.Stringer("status", status))
				fmt.Fprintf(rt.out, "[%s]\n", text)
			}
		}),
	)
	defer saver.Close()

	current := saver.Load(ctx)
	if current != "" {
		rt.printf("%s\n", current)
	}
	rt.printf("-- type to append; %s to quit, %s to clear, %s to print, %s to drop the last line --\n",
		editorQuit, editorClear, editorShow, editorUndo)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Reading the terminal cannot be interrupted, so the scanner lives
	// outside the group and the group stops reading from it on cancel.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(rt.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				saver.Flush(context.Background())
				return nil
			case line, ok := <-lines:
				if !ok {
					saver.Flush(gctx)
					return nil
				}
				if quit := rt.editLine(gctx, saver, line); quit {
					saver.Flush(gctx)
					return nil
				}
			}
		}
	})

	if dir != nil {
		watcher, err := storage.NewWatcher(dir, rt.logger)
		if err != nil {
			rt.logger.Warn("notes watcher unavailable", zap.Error(err))
		} else {
			g.Go(func() error {
				return watcher.Run(gctx)
			})
			g.Go(func() error {
				for change := range watcher.Changes() {
					if saver.Sync(gctx, change) {
						rt.printf("[reloaded]\n%s\n", saver.Value())
					}
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// editLine applies one input line and reports whether the editor should exit.
func (rt *runtime) editLine(ctx context.Context, saver *autosave.Saver, line string) bool {
	switch strings.TrimSpace(line) {
	case editorQuit:
		return true
	case editorClear:
		saver.Clear(ctx)
	case editorShow:
		rt.printf("%s\n", saver.Value())
	case editorUndo:
		value := saver.Value()
		if i := strings.LastIndex(value, "\n"); i >= 0 {
			saver.Observe(value[:i])
		} else {
			saver.Observe("")
		}
	default:
		value := saver.Value()
		if value != "" {
			value += "\n"
		}
		saver.Observe(value + line)
	}
	return false
}
