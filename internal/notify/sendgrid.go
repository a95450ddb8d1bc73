package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridNotifier delivers plain-text email through SendGrid.
type SendGridNotifier struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (n *SendGridNotifier) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return deliveryError("email", errors.New("recipient has no email address"))
	}

	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(n.from, msg.Subject, to, msg.Body, "")

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return deliveryError("email", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return deliveryError("email", fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body))
	}

	slog.Info("email sent", "to", msg.ToEmail, "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}
