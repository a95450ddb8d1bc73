package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
)

func TestFanoutOnlyReportsRequiredChannel(t *testing.T) {
	var smsCalls int
	sms := NotifierFunc(func(context.Context, Message) error {
		smsCalls++
		return deliveryError("sms", errors.New("carrier down"))
	})

	ok := Fanout{Required: NotifierFunc(func(context.Context, Message) error { return nil }), BestEffort: []Notifier{sms}}
	assert.NoError(t, ok.Send(context.Background(), Message{}))
	assert.Equal(t, 1, smsCalls)

	failing := Fanout{Required: NotifierFunc(func(context.Context, Message) error {
		return deliveryError("email", errors.New("rejected"))
	}), BestEffort: []Notifier{sms}}
	err := failing.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 1, smsCalls, "best-effort channels are skipped when the required one fails")
}

func TestSendGridRequiresRecipient(t *testing.T) {
	n := NewSendGridNotifier("key", "office@memorial.test", "Office")
	err := n.Send(context.Background(), Message{Subject: "hi"})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestTwilioSkipsMessagesWithoutPhone(t *testing.T) {
	n := NewTwilioNotifier("AC123", "token", "+15550000000")
	assert.NoError(t, n.Send(context.Background(), Message{SMS: "hello"}))
	assert.NoError(t, n.Send(context.Background(), Message{ToPhone: "+639171234567"}))
}

func TestLifecycleMailerSendsReviewOutcomesOnly(t *testing.T) {
	var sent []Message
	rec := NotifierFunc(func(_ context.Context, m Message) error {
		sent = append(sent, m)
		return nil
	})
	mailer := NewLifecycleMailer(rec, time.Second)
	ref := catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-7"}

	for _, typ := range []events.Type{events.ReservationCreated, events.ReservationCancelled, events.ReservationDeleted} {
		require.NoError(t, mailer.Publish(context.Background(), events.Event{Type: typ, Resource: ref}))
	}
	assert.Empty(t, sent)

	require.NoError(t, mailer.Publish(context.Background(), events.Event{
		Type: events.ReservationRejected, Resource: ref, ClientEmail: "maria@example.com",
		ClientName: "Maria Santos", Status: "rejected", RejectionReason: "Duplicate request",
	}))
	require.Len(t, sent, 1)
	assert.Equal(t, "maria@example.com", sent[0].ToEmail)
	assert.Contains(t, sent[0].Body, "Duplicate request")
	assert.Contains(t, sent[0].Subject, "garden plot A-3-7")
}
