package mailer

import "context"

// Message is a rendered outbound email.
type Message struct {
	ToName    string
	ToEmail   string
	Subject   string
	TextBody  string
	HTMLBody  string
	Reference string // swap request id for log correlation
}

// Mailer delivers notification email. Implementations must be safe for
// concurrent use; delivery failures are the caller's to log and swallow.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
