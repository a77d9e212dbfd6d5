package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/sanmon-backend/internal/config"
	"github.com/wneessen/go-mail"
)

// SMTPMailer sends each message over a fresh SMTP connection.
type SMTPMailer struct {
	host    string
	opts    []mail.Option
	timeout time.Duration
}

// NewSMTPMailer builds an SMTP transport. TLS is "ssl" (implicit TLS),
// "starttls" (mandatory upgrade) or "none".
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is empty")
	}

	var opts []mail.Option
	switch cfg.TLS {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "starttls":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", cfg.TLS)
	}
	opts = append(opts, mail.WithPort(cfg.Port), mail.WithTimeout(cfg.Timeout))
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	return &SMTPMailer{host: cfg.Host, opts: opts, timeout: cfg.Timeout}, nil
}

func (m *SMTPMailer) SendPlainText(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	out := mail.NewMsg()
	if err := out.From(msg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := out.To(msg.To...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.host, m.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("smtp send via %s: %w", m.host, err)
	}
	return nil
}
