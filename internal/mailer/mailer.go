package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/config"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if m.From == "" {
		return errors.New("message has no sender")
	}
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	return nil
}

// Mailer delivers plain-text email. SendPlainText returns only after the
// transport has accepted the message or failed; implementations honor ctx.
type Mailer interface {
	SendPlainText(ctx context.Context, msg Message) error
}

// New builds the transport selected by cfg.Driver.
func New(cfg config.MailConfig, log zerolog.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPMailer(cfg)
	case "sendgrid":
		return NewSendgridMailer(cfg.SendgridAPIKey, cfg.Timeout), nil
	case "console", "":
		return NewConsoleMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}
