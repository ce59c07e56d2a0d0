// Package emailer delivers account emails through SMTP, SendGrid or, when
// neither is configured, the application log.
package emailer

import (
	"context"

	"github.com/dmitrijs2005/customuser/internal/logging"
	"github.com/dmitrijs2005/customuser/internal/server/config"
)

type Attachment struct {
	Name     string
	Data     []byte
	MimeType string
}

// Message is one outgoing email. From fields left empty fall back to the
// sender configured on the Emailer.
type Message struct {
	ToName      string
	To          string
	FromName    string
	From        string
	Subject     string
	Content     string
	HTML        bool
	Attachments []Attachment
}

type Emailer interface {
	Send(ctx context.Context, msg Message) error
}

// FromConfig picks SendGrid when an API key is set, SMTP when a host is
// set and the log otherwise.
func FromConfig(cfg *config.Config, logger logging.Logger) Emailer {
	switch {
	case cfg.SendgridAPIKey != "":
		return NewSendgridApiMail(cfg.SendgridAPIKey, cfg.EmailFromName, cfg.EmailFrom)
	case cfg.SMTPHostname != "":
		return NewSmtpMail(cfg.SMTPHostname, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword,
			cfg.SMTPNoTLSCheck, cfg.SMTPAuthType, cfg.EmailFromName, cfg.EmailFrom, cfg.SMTPEncryption)
	default:
		return NewConsoleMail(logger, cfg.EmailFromName, cfg.EmailFrom)
	}
}

func sender(msg Message, defaultName, defaultFrom string) (string, string) {
	if msg.From == "" {
		return defaultName, defaultFrom
	}
	return msg.FromName, msg.From
}

func contentType(msg Message) string {
	if msg.HTML {
		return "text/html"
	}
	return "text/plain"
}
