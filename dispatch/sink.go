package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/browser"
)

// DefaultLinkBase is the click-to-chat host used when none is configured.
const DefaultLinkBase = "https://wa.me"

// Sink performs the one external side effect for a recipient.
type Sink interface {
	Deliver(ctx context.Context, recipient, payload string) error
}

// Opener opens a URL in a new browsing context.
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

// LinkSink delivers by opening a click-to-chat link. No response is read back.
type LinkSink struct {
	BaseURL string
	Opener  Opener
}

// NewLinkSink creates a LinkSink. An empty base uses DefaultLinkBase.
func NewLinkSink(base string, opener Opener) *LinkSink {
	if base == "" {
		base = DefaultLinkBase
	}
	return &LinkSink{BaseURL: base, Opener: opener}
}

// Deliver opens the link for one recipient.
func (s *LinkSink) Deliver(ctx context.Context, recipient, payload string) error {
	link, err := BuildLink(s.BaseURL, recipient, payload)
	if err != nil {
		return err
	}
	if err := s.Opener.Open(ctx, link); err != nil {
		return fmt.Errorf("open link: %w", err)
	}
	return nil
}

// BuildLink returns <base>/<recipient>?text=<url-encoded payload>.
func BuildLink(base, recipient, payload string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid link base %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid link base %q: scheme and host required", base)
	}
	u.Path = u.Path + "/" + url.PathEscape(recipient)
	u.RawQuery = url.Values{"text": {payload}}.Encode()
	return u.String(), nil
}

// SystemOpener opens links in the user's default browser.
type SystemOpener struct{}

// Open hands the URL to the platform browser launcher.
func (SystemOpener) Open(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return browser.OpenURL(rawURL)
}

// RecordingOpener records URLs instead of opening them (dry runs, tests).
type RecordingOpener struct {
	mu   sync.Mutex
	urls []string
}

// Open records the URL.
func (o *RecordingOpener) Open(ctx context.Context, rawURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, rawURL)
	return nil
}

// URLs returns the recorded URLs in order.
func (o *RecordingOpener) URLs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

var (
	_ Sink   = (*LinkSink)(nil)
	_ Opener = SystemOpener{}
	_ Opener = (*RecordingOpener)(nil)
)
