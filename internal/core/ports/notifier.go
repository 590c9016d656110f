package ports

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Notifier delivers messages to users. Send returns once delivery has either
// been accepted or failed.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ResetThrottle limits how often reset emails are sent to one account.
// Allow claims the window for userID and reports whether a new reset email
// may go out now. Release gives a claimed window back when no email was sent.
type ResetThrottle interface {
	Allow(ctx context.Context, userID int64) (bool, error)
	Release(ctx context.Context, userID int64) error
}
