package mailer

import (
	"time"

	mail "github.com/go-mail/mail/v2"
)

// The Mailer delivers notification and contact mails through a configured
// SMTP relay. Sending is synchronous, callers that don't want to wait run
// it in a background goroutine.
type Mailer struct {
	dialer *mail.Dialer
	sender string
}

func New(host string, port int, username, password, sender string) Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return Mailer{
		dialer: dialer,
		sender: sender,
	}
}

// Send a plain text mail to a single recipient. The replyTo address is
// optional and used by the contact form to let administrators answer
// directly.
func (m Mailer) Send(recipient, replyTo, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject)
	if replyTo != "" {
		msg.SetHeader("Reply-To", replyTo)
	}
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
