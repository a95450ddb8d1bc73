package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioNotifier sends the SMS form of a message. Messages without a phone
// number or SMS text are skipped.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioNotifier(accountSID, authToken, fromNumber string) *TwilioNotifier {
	return &TwilioNotifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   accountSID,
			Password:   authToken,
			AccountSid: accountSID,
		}),
		from: fromNumber,
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, msg Message) error {
	if msg.ToPhone == "" || msg.SMS == "" {
		return nil
	}
	if !strings.HasPrefix(msg.ToPhone, "+") {
		slog.Warn("phone number is not in E.164 format", "to", msg.ToPhone)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(msg.ToPhone)
	params.SetFrom(n.from)
	params.SetBody(msg.SMS)

	// The Twilio client takes no context; bound the wait ourselves.
	done := make(chan error, 1)
	go func() {
		resp, err := n.client.Api.CreateMessage(params)
		if err == nil && resp != nil && resp.Sid != nil {
			slog.Info("sms sent", "to", msg.ToPhone, "sid", *resp.Sid)
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return deliveryError("sms", err)
		}
		return nil
	case <-ctx.Done():
		return deliveryError("sms", ctx.Err())
	}
}
