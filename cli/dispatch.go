package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/richinex/toolsuite/config"
	"github.com/richinex/toolsuite/dispatch"
	"github.com/richinex/toolsuite/templates"
	"go.uber.org/zap"
)

// DispatchOptions describes one bulk messaging run.
type DispatchOptions struct {
	To         []string // recipients, each possibly a comma/newline separated list
	ToFile     string   // file of recipients
	Message    string
	TemplateID string
	Delay      time.Duration // zero uses the configured delay
	Opener     string        // empty uses the configured opener
	LinkBase   string        // empty uses the configured link base
	ProfileDir string        // Chrome profile for the browser opener
}

// Dispatch opens one chat per recipient, in order, waiting between recipients.
// Canceling ctx (Ctrl+C) halts the run before the next recipient.
func Dispatch(ctx context.Context, d DispatchOptions, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	recipients, err := collectRecipients(d)
	if err != nil {
		return err
	}

	payload, err := rt.resolvePayload(ctx, d)
	if err != nil {
		return err
	}

	delay := d.Delay
	if delay == 0 {
		delay = rt.settings.Dispatch.Delay
	}
	openerName := strings.ToLower(d.Opener)
	if openerName == "" {
		openerName = rt.settings.Dispatch.Opener
	}
	linkBase := d.LinkBase
	if linkBase == "" {
		linkBase = rt.settings.Dispatch.LinkBase
	}

	sink, recorder, cleanup, err := rt.createSink(openerName, linkBase, d.ProfileDir)
	if err != nil {
		return err
	}
	defer cleanup()

	dispatcher := dispatch.New(sink, dispatch.WithLogger(rt.logger))
	progress, err := dispatcher.Dispatch(ctx, recipients, payload, delay)
	if err != nil {
		return err
	}

	rt.printf("Dispatching to %d recipient(s) via %s, %s apart. Ctrl+C to stop.\n", len(recipients), openerName, delay)
	final := dispatch.Wait(progress, func(p dispatch.Progress) {
		if p.Done {
			return
		}
		if p.Err != nil {
			rt.printf("%s: %s (failed: %v)\n", p.Message, p.Recipient, p.Err)
			return
		}
		rt.printf("%s: %s\n", p.Message, p.Recipient)
	})

	if recorder != nil {
		for _, u := range recorder.URLs() {
			rt.printf("  %s\n", u)
		}
	}

	rt.printf("%s", final.Message)
	if final.Failed > 0 {
		rt.printf(" (%d failed)", final.Failed)
	}
	rt.printf("\n")

	if openerName == config.OpenerBrowser && final.Processed > 0 {
		rt.printf("Press Enter to close the browser.\n")
		rt.waitForEnter(ctx)
	}
	return nil
}

// waitForEnter blocks until a line is read from In or ctx is done.
func (rt *runtime) waitForEnter(ctx context.Context) {
	read := make(chan struct{})
	go func() {
		defer close(read)
		_, _ = bufio.NewReader(rt.in).ReadString('\n')
	}()
	select {
	case <-read:
	case <-ctx.Done():
	}
}

// collectRecipients merges --to values and the recipients file.
func collectRecipients(d DispatchOptions) ([]string, error) {
	var recipients []string
	for _, to := range d.To {
		recipients = append(recipients, dispatch.ParseRecipients(to)...)
	}
	if d.ToFile != "" {
		data, err := os.ReadFile(d.ToFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read recipients file: %w", err)
		}
		recipients = append(recipients, dispatch.ParseRecipients(string(data))...)
	}
	return recipients, nil
}

// resolvePayload returns the explicit message, or the chosen template's message.
func (rt *runtime) resolvePayload(ctx context.Context, d DispatchOptions) (string, error) {
	if d.TemplateID == "" {
		return d.Message, nil
	}
	if d.Message != "" {
		return "", errors.New("use either --message or --template, not both")
	}

	store, closeStore, err := rt.templateStore()
	if err != nil {
		return "", err
	}
	defer closeStore()

	t, err := store.Get(ctx, d.TemplateID)
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			return "", fmt.Errorf("%w (see 'toolsuite templates list')", err)
		}
		return "", err
	}
	return t.Message, nil
}

// createSink builds the delivery sink for an opener name. For dry runs the
// returned recorder holds the links that would have been opened.
func (rt *runtime) createSink(opener, linkBase, profileDir string) (dispatch.Sink, *dispatch.RecordingOpener, func(), error) {
	noop := func() {}

	switch opener {
	case config.OpenerDryRun:
		recorder := &dispatch.RecordingOpener{}
		return dispatch.NewLinkSink(linkBase, recorder), recorder, noop, nil
	case config.OpenerSystem:
		return dispatch.NewLinkSink(linkBase, dispatch.SystemOpener{}), nil, noop, nil
	case config.OpenerBrowser:
		browser := dispatch.NewBrowserOpener(dispatch.BrowserConfig{
			ProfileDir: profileDir,
			Logger:     rt.logger,
		})
		cleanup := func() {
			if err := browser.Close(); err != nil {
				rt.logger.Warn("failed to close browser", zap.Error(err))
			}
		}
		return dispatch.NewLinkSink(linkBase, browser), nil, cleanup, nil
	case config.OpenerTelegram:
		token, err := config.TelegramToken()
		if err != nil {
			return nil, nil, nil, err
		}
		sink, err := dispatch.NewTelegramSink(token)
		if err != nil {
			return nil, nil, nil, err
		}
		return sink, nil, noop, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown opener: %q (browser, system, telegram, dry-run)", opener)
	}
}
