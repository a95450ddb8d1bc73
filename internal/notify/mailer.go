package notify

import (
	"context"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/events"
)

// LifecycleMailer tells clients about review outcomes. It is an events.Publisher
// and only reacts to approval and rejection.
type LifecycleMailer struct {
	notifier Notifier
	timeout  time.Duration
}

var _ events.Publisher = (*LifecycleMailer)(nil)

func NewLifecycleMailer(n Notifier, timeout time.Duration) *LifecycleMailer {
	return &LifecycleMailer{notifier: n, timeout: timeout}
}

func (m *LifecycleMailer) Publish(ctx context.Context, e events.Event) error {
	var name string
	switch e.Type {
	case events.ReservationApproved:
		name = TemplateApproved
	case events.ReservationRejected:
		name = TemplateRejected
	default:
		return nil
	}

	msg, err := Render(name, TemplateData{
		ClientName:    e.ClientName,
		ClientEmail:   e.ClientEmail,
		ClientPhone:   e.ClientPhone,
		ReservationID: e.ReservationID,
		Resource:      ResourceLabel(e.Resource),
		Status:        e.Status,
		Reason:        e.RejectionReason,
	})
	if err != nil {
		return err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.notifier.Send(ctx, msg)
}
