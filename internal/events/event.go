// Package events carries reservation lifecycle events to interested parties:
// the message broker, the availability cache and the client mailer.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

type Type string

const (
	ReservationCreated   Type = "reservation.created"
	ReservationApproved  Type = "reservation.approved"
	ReservationRejected  Type = "reservation.rejected"
	ReservationCancelled Type = "reservation.cancelled"
	ReservationCompleted Type = "reservation.completed"
	ReservationDeleted   Type = "reservation.deleted"
	ReservationConfirmed Type = "reservation.confirmed"
)

// Event is a committed reservation transition.
type Event struct {
	Type            Type        `json:"type"`
	ReservationID   string      `json:"reservation_id"`
	Resource        catalog.Ref `json:"resource"`
	Status          string      `json:"status"`
	ActorID         string      `json:"actor_id"`
	ClientName      string      `json:"client_name"`
	ClientEmail     string      `json:"client_email"`
	ClientPhone     string      `json:"client_phone,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	OccurredAt      time.Time   `json:"occurred_at"`
}

// Publisher receives lifecycle events. Callers treat publishing as best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
