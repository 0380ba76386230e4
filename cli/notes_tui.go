package cli

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/richinex/toolsuite/autosave"
	"github.com/richinex/toolsuite/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statusPollInterval = 150 * time.Millisecond

var (
	notesTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	notesStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	notesErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type statusTickMsg time.Time

// reloadedMsg reports that another process changed the notes.
type reloadedMsg struct{}

// notesModel is the full-screen notes widget. The saver is polled for status
// rather than pushing it, since its callback runs under the saver's lock.
type notesModel struct {
	saver  *autosave.Saver
	area   textarea.Model
	status autosave.Status
	text   string
}

func newNotesModel(saver *autosave.Saver, initial string) notesModel {
	area := textarea.New()
	area.Placeholder = "Start typing... (Ctrl+L clear, Esc quit)"
	area.ShowLineNumbers = false
	area.CharLimit = 0
	area.SetWidth(80)
	area.SetHeight(20)
	area.SetValue(initial)
	area.Focus()

	return notesModel{saver: saver, area: area}
}

func pollStatus() tea.Cmd {
	return tea.Tick(statusPollInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m notesModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, pollStatus())
}

func (m notesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			ctx, cancel := context.WithTimeout(context.Background(), autosave.DefaultWriteTimeout)
			m.saver.Flush(ctx)
			cancel()
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.saver.Clear(context.Background())
			m.area.Reset()
			m.status, m.text = m.saver.Status(), m.saver.StatusText()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.area.SetWidth(msg.Width - 2)
		m.area.SetHeight(msg.Height - 4)
		return m, nil

	case statusTickMsg:
		m.status, m.text = m.saver.Status(), m.saver.StatusText()
		return m, pollStatus()

	case reloadedMsg:
		m.area.SetValue(m.saver.Value())
		return m, nil
	}

	var cmd tea.Cmd
	m.area, cmd = m.area.Update(msg)
	if value := m.area.Value(); value != m.saver.Value() {
		m.saver.Observe(value)
	}
	return m, cmd
}

func (m notesModel) View() string {
	status := notesStatusStyle.Render(m.text)
	if m.status == autosave.StatusError {
		status = notesErrorStyle.Render(m.text)
	}
	return notesTitleStyle.Render("Notes") + "\n\n" + m.area.View() + "\n" + status + "\n"
}

// NotesTUI opens the full-screen notes editor.
func NotesTUI(ctx context.Context, opts Options) error {
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
	)
	defer saver.Close()

	initial := saver.Load(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newNotesModel(saver, initial),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(rt.in),
		tea.WithOutput(rt.term),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	if dir != nil {
		watcher, err := storage.NewWatcher(dir, rt.logger)
		if err != nil {
			rt.logger.Warn("notes watcher unavailable", zap.Error(err))
		} else {
			g.Go(func() error { return watcher.Run(gctx) })
			g.Go(func() error {
				for change := range watcher.Changes() {
					if saver.Sync(gctx, change) {
						program.Send(reloadedMsg{})
					}
				}
				return nil
			})
		}
	}

	return g.Wait()
}
