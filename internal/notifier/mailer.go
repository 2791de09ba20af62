package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends one message. The SMTP implementation is deliberately thin;
// delivery is best-effort and the caller logs failures.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	Addr string // host:port
	User string
	Pass string
	From string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	var auth smtp.Auth
	if m.User != "" {
		host := m.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.User, m.Pass, host)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	return smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(msg))
}
