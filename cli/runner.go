// Command execution for CLI commands.
//
// Information Hiding:
// - Settings, logger and storage setup hidden
// - Provider construction hidden
// - Output formatting hidden

package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/richinex/toolsuite/config"
	"github.com/richinex/toolsuite/llm"
	"github.com/richinex/toolsuite/logging"
	"github.com/richinex/toolsuite/storage"
	"go.uber.org/zap"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	ConfigPath string
	Verbose    bool

	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer
	// In is read by interactive commands. Defaults to os.Stdin.
	In io.Reader

	// Overrides used by tests.
	provider llm.Provider
	store    storage.KeyValueStore
	logger   *zap.Logger
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		Out: os.Stdout,
		In:  os.Stdin,
	}
}

// runtime is the per-command environment built from Options.
type runtime struct {
	opts     Options
	settings config.Settings
	logger   *zap.Logger
	out      io.Writer
	in       io.Reader
	term     io.Writer // out before locking, for full-screen programs that probe the terminal
}

func newRuntime(opts Options) (*runtime, error) {
	settings, err := config.Load(opts.ConfigPath, opts.Provider)
	if err != nil {
		return nil, err
	}

	logger := opts.logger
	if logger == nil {
		logger, err = logging.New(opts.Verbose)
		if err != nil {
			return nil, err
		}
	}

	rt := &runtime{
		opts:     opts,
		settings: settings,
		logger:   logger,
		out:      opts.Out,
		in:       opts.In,
	}
	if rt.out == nil {
		rt.out = os.Stdout
	}
	rt.term = rt.out
	rt.out = &lockedWriter{w: rt.out}
	if rt.in == nil {
		rt.in = os.Stdin
	}
	return rt, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

func (rt *runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.out, format, args...)
}

// lockedWriter serializes output from background callbacks and the command loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// openStore opens the configured key-value backend. The returned DirStorage
// is non-nil only for the dir backend, which supports change watching.
func (rt *runtime) openStore() (storage.KeyValueStore, *storage.DirStorage, error) {
	if rt.opts.store != nil {
		dir, _ := rt.opts.store.(*storage.DirStorage)
		return nopCloser{rt.opts.store}, dir, nil
	}

	if rt.settings.Storage.Backend == config.BackendMemory {
		return storage.NewInMemoryStorage(), nil, nil
	}

	path, err := rt.settings.StoragePath()
	if err != nil {
		return nil, nil, err
	}

	switch rt.settings.Storage.Backend {
	case config.BackendDir:
		dir, err := storage.OpenDir(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open storage directory: %w", err)
		}
		return dir, dir, nil
	default:
		db, err := storage.OpenSqlite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil, nil
	}
}

// nopCloser keeps an injected store open across commands.
type nopCloser struct {
	storage.KeyValueStore
}

func (nopCloser) Close() error { return nil }

// createProvider builds the provider for a modality with an explicitly
// resolved API key.
func (rt *runtime) createProvider(modality llm.Modality) (llm.Provider, error) {
	if rt.opts.provider != nil {
		return rt.opts.provider, nil
	}

	providerType, err := llm.ParseProviderType(rt.settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(rt.settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	builder := providerType.
		Model(rt.settings.LLM.Model).
		MaxTokens(rt.settings.LLM.MaxTokens).
		Temperature(float32(rt.settings.LLM.Temperature))

	if modality == llm.ModalityImage {
		if !providerType.SupportsImages() {
			return nil, fmt.Errorf("%s cannot generate images; use --provider gemini or openai", providerType)
		}
		if providerType == llm.ProviderGemini {
			builder = builder.Model(providerType.DefaultImageModel())
		} else {
			builder = builder.ImageModel(providerType.DefaultImageModel())
		}
	}

	return builder.APIKey(apiKey)
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
