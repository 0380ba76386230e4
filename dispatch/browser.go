package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserConfig holds configuration for the Chrome-backed opener.
type BrowserConfig struct {
	ProfileDir string // Chrome user data directory (keeps messaging web sessions logged in)
	Headless   bool
	Logger     *zap.Logger
}

// BrowserOpener opens every link in a new tab of one shared Chrome instance.
// Tabs stay open until Close so the user can act on each conversation.
type BrowserOpener struct {
	cfg BrowserConfig

	mu          sync.Mutex
	browserCtx  context.Context
	closeAlloc  context.CancelFunc
	closeTabs   []context.CancelFunc
	initialized bool
}

// NewBrowserOpener creates an opener; Chrome starts on the first Open.
func NewBrowserOpener(cfg BrowserConfig) *BrowserOpener {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".toolsuite", "chrome-profile")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &BrowserOpener{cfg: cfg}
}

func (b *BrowserOpener) start() (context.Context, error) {
	if b.initialized {
		return b.browserCtx, nil
	}
	if err := os.MkdirAll(b.cfg.ProfileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(b.cfg.ProfileDir),
		chromedp.Flag("headless", b.cfg.Headless),
	)

	// The browser outlives any single Open call, so it hangs off Background.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	b.browserCtx = browserCtx
	b.closeAlloc = func() {
		browserCancel()
		allocCancel()
	}
	b.initialized = true
	b.cfg.Logger.Info("browser started", zap.String("profile", b.cfg.ProfileDir))
	return browserCtx, nil
}

// Open navigates a new tab to rawURL.
func (b *BrowserOpener) Open(ctx context.Context, rawURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	browserCtx, err := b.start()
	if err != nil {
		return err
	}

	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, chromedp.Navigate(rawURL)) }()

	select {
	case err := <-done:
		if err != nil {
			closeTab()
			return fmt.Errorf("navigate: %w", err)
		}
	case <-ctx.Done():
		closeTab()
		<-done
		return ctx.Err()
	}

	b.closeTabs = append(b.closeTabs, closeTab)
	b.cfg.Logger.Debug("opened tab", zap.Int("tabs", len(b.closeTabs)))
	return nil
}

// Close closes every tab and the browser.
func (b *BrowserOpener) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, closeTab := range b.closeTabs {
		closeTab()
	}
	b.closeTabs = nil
	if b.closeAlloc != nil {
		b.closeAlloc()
		b.closeAlloc = nil
	}
	b.initialized = false
	return nil
}

var _ Opener = (*BrowserOpener)(nil)
