package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridMailer sends through the SendGrid v3 HTTP API.
type SendgridMailer struct {
	client  *sendgrid.Client
	timeout time.Duration
}

func NewSendgridMailer(apiKey string, timeout time.Duration) *SendgridMailer {
	return &SendgridMailer{client: sendgrid.NewSendClient(apiKey), timeout: timeout}
}

func (m *SendgridMailer) SendPlainText(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	res, err := m.client.SendWithContext(ctx, prepareSendgrid(msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func prepareSendgrid(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(sgmail.NewEmail("", msg.From))
	v3.Subject = msg.Subject
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return v3
}
