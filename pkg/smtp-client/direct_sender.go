package smtp_client

import (
	"crypto/tls"
	"errors"

	"github.com/jordan-wright/email"
)

// DirectSender opens a new connection for every message. Used by batch jobs that send a handful of mails.
type DirectSender struct {
	servers SmtpServerList
}

func NewDirectSender(config SmtpServerList) (*DirectSender, error) {
	if len(config.Servers) < 1 {
		return nil, ErrNoServers
	}
	return &DirectSender{servers: config}, nil
}

// SendMail tries the configured servers in order and returns the last error if none accepted the message.
func (ds *DirectSender) SendMail(
	to []string,
	subject string,
	htmlContent string,
	overrides *HeaderOverrides,
) error {
	e := buildEmail(ds.servers, to, subject, htmlContent, overrides)

	var errs []error
	for _, server := range ds.servers.Servers {
		err := e.SendWithStartTLS(server.Address(), smtpAuth(server), &tls.Config{
			InsecureSkipVerify: server.InsecureSkipVerify,
			ServerName:         server.Host,
		})
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func buildEmail(servers SmtpServerList, to []string, subject string, htmlContent string, overrides *HeaderOverrides) *email.Email {
	h := resolveHeaders(servers, overrides)

	e := email.NewEmail()
	e.To = to
	e.From = h.From
	e.Sender = h.Sender
	e.ReplyTo = h.ReplyTo
	e.Subject = subject
	e.HTML = []byte(htmlContent)
	return e
}
