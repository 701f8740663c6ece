// Package notify delivers account notifications (such as the set-password
// link sent after registration) to users.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned when a message has no address to deliver to.
var ErrNoRecipient = errors.New("notify: no recipient")

// Message is addressed by email; each Notifier resolves that to its own
// platform identity.
type Message struct {
	To      string
	Subject string
	Body    string
	// Link is an optional call to action rendered after the body.
	Link string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Chain tries each notifier in order and stops at the first success.
type Chain []Notifier

func (c Chain) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify.Chain.Notify: %w", ErrNoRecipient)
	}

	var errs []error
	for _, n := range c {
		err := n.Notify(ctx, msg)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}

	return fmt.Errorf("notify.Chain.Notify: all notifiers failed: %w", errors.Join(errs...))
}

// LogNotifier writes messages to the log. It is the fallback when no chat
// integration is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify.LogNotifier.Notify: %w", ErrNoRecipient)
	}

	n.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("link", msg.Link).
		Msg(msg.Body)
	return nil
}
