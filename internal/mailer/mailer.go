// Package mailer delivers outgoing mail through a Redis-backed outbox so
// request handlers never wait on SMTP.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Message is one queued email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message immediately.
type Sender interface {
	Send(msg Message) error
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender sends mail with gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

// NewAccountMessage builds the welcome mail carrying a generated password.
func NewAccountMessage(to, name, password string) Message {
	return Message{
		To:      to,
		Subject: "Your account has been created",
		Body: fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>An account has been created for you.</p>
		<p><strong>Email:</strong> %s<br><strong>Password:</strong> %s</p>
		<p>Please change your password after your first login.</p>
	`, name, to, password),
	}
}
