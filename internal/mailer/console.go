package mailer

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ConsoleMailer writes messages to the log instead of sending them.
// It keeps every message it accepted, which tests inspect through Sent.
type ConsoleMailer struct {
	log  zerolog.Logger
	mu   sync.Mutex
	sent []Message
}

func NewConsoleMailer(log zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log.With().Str("component", "console_mailer").Logger()}
}

func (m *ConsoleMailer) SendPlainText(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		msg.To = []string{"console"}
	}

	m.log.Info().
		Str("from", msg.From).
		Str("to", strings.Join(msg.To, ", ")).
		Str("subject", msg.Subject).
		Msg(msg.Body)

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the accepted messages.
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
