package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

var ErrNoRecipient = errors.New("notify: message has no recipient")

// LogSender "delivers" email by writing it to the log. It stands in for a
// mail provider in development and tests.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "mailer").Logger()}
}

func (s *LogSender) Send(ctx context.Context, msg ports.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return ErrNoRecipient
	}

	s.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("email sent")
	return nil
}
