// Package mailer delivers ticket notifications.  The production
// transport lives behind Mailer so the queue consumer and the resend
// endpoint do not care how mail actually goes out.
package mailer

import (
	"context"

	"github.com/courtside/tournament-registration/internal/logger"
)

// Mailer sends a single message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes messages to the log instead of sending them.  Used
// in development and as the default when no provider is wired.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Info("mail (log transport)", "to", to, "subject", subject, "body_bytes", len(body))
	return nil
}
