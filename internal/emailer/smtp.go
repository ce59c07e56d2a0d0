package emailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"
)

type SmtpMail struct {
	hostname   string
	port       int
	username   string
	password   string
	authType   mail.AuthType
	encryption mail.Encryption
	noTLSCheck bool
	fromName   string
	from       string
}

func authType(authType string) mail.AuthType {
	switch strings.ToUpper(authType) {
	case "PLAIN":
		return mail.AuthPlain
	case "LOGIN":
		return mail.AuthLogin
	case "CRAM-MD5":
		return mail.AuthCRAMMD5
	default:
		return mail.AuthNone
	}
}

func encryptionType(encryptionType string) mail.Encryption {
	switch strings.ToUpper(encryptionType) {
	case "NONE":
		return mail.EncryptionNone
	case "SSL":
		return mail.EncryptionSSL
	case "SSLTLS":
		return mail.EncryptionSSLTLS
	case "TLS":
		return mail.EncryptionTLS
	default:
		return mail.EncryptionSTARTTLS
	}
}

func NewSmtpMail(hostname string, port int, username string, password string, noTLSCheck bool, auth string, fromName, from string, encryption string) *SmtpMail {
	return &SmtpMail{
		hostname:   hostname,
		port:       port,
		username:   username,
		password:   password,
		noTLSCheck: noTLSCheck,
		fromName:   fromName,
		from:       from,
		authType:   authType(auth),
		encryption: encryptionType(encryption),
	}
}

func addressField(address string, name string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

func (o *SmtpMail) Send(ctx context.Context, msg Message) error {
	server := mail.NewSMTPClient()

	server.Host = o.hostname
	server.Port = o.port
	server.Authentication = o.authType
	server.Username = o.username
	server.Password = o.password
	server.Encryption = o.encryption
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < server.ConnectTimeout {
			server.ConnectTimeout = d
			server.SendTimeout = d
		}
	}

	if o.noTLSCheck {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("smtp connect: %w", err)
	}

	body := mail.TextPlain
	if msg.HTML {
		body = mail.TextHTML
	}

	fromName, from := sender(msg, o.fromName, o.from)
	email := mail.NewMSG()
	email.SetFrom(addressField(from, fromName)).
		AddTo(addressField(msg.To, msg.ToName)).
		SetSubject(msg.Subject).
		SetBody(body, msg.Content)

	for _, v := range msg.Attachments {
		email.Attach(&mail.File{Name: v.Name, Data: v.Data, MimeType: v.MimeType})
	}
	if email.Error != nil {
		return email.Error
	}

	return email.Send(smtpClient)
}
