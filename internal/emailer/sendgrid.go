package emailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridHost = "https://api.sendgrid.com"

type SendgridApiMail struct {
	apiKey   string
	fromName string
	from     string
	host     string
}

func NewSendgridApiMail(apiKey, fromName, from string) *SendgridApiMail {
	return &SendgridApiMail{apiKey: apiKey, fromName: fromName, from: from, host: sendgridHost}
}

func (o *SendgridApiMail) Send(ctx context.Context, msg Message) error {
	m := mail.NewV3Mail()

	fromName, from := sender(msg, o.fromName, o.from)
	m.SetFrom(mail.NewEmail(fromName, from))
	m.AddContent(mail.NewContent(contentType(msg), msg.Content))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(msg.ToName, msg.To))
	personalization.Subject = msg.Subject
	m.AddPersonalizations(personalization)

	toAdd := make([]*mail.Attachment, 0, len(msg.Attachments))
	for i := range msg.Attachments {
		var att mail.Attachment
		att.SetContent(base64.StdEncoding.EncodeToString(msg.Attachments[i].Data))
		mimeType := msg.Attachments[i].MimeType
		if mimeType == "" {
			mimeType = "text/plain"
		}
		att.SetType(mimeType)
		att.SetFilename(msg.Attachments[i].Name)
		att.SetDisposition("attachment")
		toAdd = append(toAdd, &att)
	}
	if len(toAdd) > 0 {
		m.AddAttachment(toAdd...)
	}

	request := sendgrid.GetRequest(o.apiKey, "/v3/mail/send", o.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)

	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := sendgrid.API(request)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
