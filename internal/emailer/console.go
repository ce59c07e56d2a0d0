package emailer

import (
	"context"

	"github.com/dmitrijs2005/customuser/internal/logging"
)

// ConsoleMail writes messages to the log instead of sending them.
type ConsoleMail struct {
	logger   logging.Logger
	fromName string
	from     string
}

func NewConsoleMail(logger logging.Logger, fromName, from string) *ConsoleMail {
	return &ConsoleMail{logger: logger, fromName: fromName, from: from}
}

func (o *ConsoleMail) Send(ctx context.Context, msg Message) error {
	fromName, from := sender(msg, o.fromName, o.from)
	o.logger.Info(ctx, "email",
		"from", addressField(from, fromName),
		"to", addressField(msg.To, msg.ToName),
		"subject", msg.Subject,
		"content_type", contentType(msg),
		"content", msg.Content,
		"attachments", len(msg.Attachments),
	)
	return nil
}
