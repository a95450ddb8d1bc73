// Package notify delivers client-facing messages about reservations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrDeliveryFailed wraps every delivery failure so callers can treat them uniformly.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Message is one notification to one recipient. Channels use the fields they need.
type Message struct {
	ToName  string
	ToEmail string
	ToPhone string
	Subject string
	Body    string
	// SMS is the short form sent over text message. Empty disables SMS for the message.
	SMS string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

func deliveryError(channel string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, channel, err)
}

// Fanout sends through a required channel and then through best-effort channels.
// Only a failure of the required channel is reported.
type Fanout struct {
	Required   Notifier
	BestEffort []Notifier
}

func (f Fanout) Send(ctx context.Context, msg Message) error {
	if err := f.Required.Send(ctx, msg); err != nil {
		return err
	}
	for _, n := range f.BestEffort {
		if err := n.Send(ctx, msg); err != nil {
			slog.Warn("best-effort notification failed", "to", msg.ToEmail, "error", err)
		}
	}
	return nil
}

// LogNotifier writes messages to the log instead of delivering them. Used in
// development when no email provider is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	slog.Info("notification (not delivered)", "to", msg.ToEmail, "subject", msg.Subject)
	return nil
}
