// Package dispatch runs the bulk messaging loop: one outbound side effect
// per recipient, in order, with a fixed delay between recipients.
//
// Information Hiding:
// - Recipient normalization
// - Sequencing, inter-item delay and cancellation
// - Progress reporting

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// ErrEmptyRecipient is reported for a recipient with no digits.
var ErrEmptyRecipient = errors.New("recipient has no digits")

// ValidationError reports a job rejected before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid dispatch: " + e.Reason
}

// Progress is one update from a running dispatch.
type Progress struct {
	// Index is the 1-based position of the recipient. Zero on the terminal update.
	Index int
	// Total is the number of recipients in the run.
	Total int
	// Recipient is the normalized identifier.
	Recipient string
	// Err is the delivery failure for this recipient, if any.
	Err error
	// Message is a human-readable status line.
	Message string

	// Done marks the terminal update.
	Done bool
	// Canceled is set on the terminal update when the run was halted early.
	Canceled bool
	// Processed counts recipients handled so far (terminal update).
	Processed int
	// Failed counts recipients whose delivery failed (terminal update).
	Failed int
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dispatcher performs sequential dispatch runs against a Sink.
type Dispatcher struct {
	sink   Sink
	sleep  SleepFunc
	logger *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleep replaces the inter-recipient wait.
func WithSleep(fn SleepFunc) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Dispatcher delivering through sink.
func New(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:   sink,
		sleep:  sleepContext,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch validates the job and starts it in the background.
// The returned channel yields one Progress per recipient, then a terminal
// Progress with Done set, and is then closed. Canceling ctx halts the run
// before the next recipient or during a delay.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []string, payload string, delay time.Duration) (<-chan Progress, error) {
	if len(recipients) == 0 {
		return nil, &ValidationError{Reason: "please enter at least one recipient"}
	}
	if strings.TrimSpace(payload) == "" {
		return nil, &ValidationError{Reason: "please enter a message"}
	}
	if delay < 0 {
		delay = 0
	}

	list := append([]string(nil), recipients...)
	// Buffered for every update so an inattentive reader never stalls the run.
	progress := make(chan Progress, len(list)+1)

	go d.run(ctx, list, payload, delay, progress)
	return progress, nil
}

func (d *Dispatcher) run(ctx context.Context, recipients []string, payload string, delay time.Duration, progress chan<- Progress) {
	defer close(progress)

	total := len(recipients)
	processed, failed := 0, 0
	canceled := false

	d.logger.Info("dispatch started", zap.Int("recipients", total), zap.Duration("delay", delay))

	for i, raw := range recipients {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		recipient := Normalize(raw)
		p := Progress{
			Index:     i + 1,
			Total:     total,
			Recipient: recipient,
			Message:   fmt.Sprintf("processing %d of %d", i+1, total),
		}

		if recipient == "" {
			p.Err = fmt.Errorf("%w: %q", ErrEmptyRecipient, raw)
		} else if err := d.sink.Deliver(ctx, recipient, payload); err != nil {
			p.Err = err
		}
		if p.Err != nil {
			failed++
			d.logger.Warn("dispatch delivery failed",
				zap.Int("index", i+1),
				zap.String("recipient", recipient),
				zap.Error(p.Err))
		}
		processed++
		progress <- p

		if i < total-1 {
			if err := d.sleep(ctx, delay); err != nil {
				canceled = true
				break
			}
		}
	}

	msg := fmt.Sprintf("finished, %d processed", processed)
	if canceled {
		msg = fmt.Sprintf("canceled, %d of %d processed", processed, total)
	}
	d.logger.Info("dispatch finished",
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Bool("canceled", canceled))

	progress <- Progress{
		Total:     total,
		Message:   msg,
		Done:      true,
		Canceled:  canceled,
		Processed: processed,
		Failed:    failed,
	}
}

// Wait drains progress, calling fn for every update, and returns the terminal update.
func Wait(progress <-chan Progress, fn func(Progress)) Progress {
	var last Progress
	for p := range progress {
		if fn != nil {
			fn(p)
		}
		last = p
	}
	return last
}

// Normalize strips every non-digit character from a recipient identifier.
func Normalize(recipient string) string {
	var sb strings.Builder
	for _, r := range recipient {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ParseRecipients splits free-form input on newlines, commas and semicolons,
// dropping blank entries. Deduplication is left to the caller.
func ParseRecipients(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == ',' || r == ';' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
