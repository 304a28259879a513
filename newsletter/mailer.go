package newsletter

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Mailer sends the subscription confirmation email.
type Mailer interface {
	SendConfirmation(email string) error
}

// SMTPMailer delivers confirmation mail through a plain SMTP endpoint.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates a mailer for the given SMTP endpoint. Username and
// password may be empty for unauthenticated relays.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendConfirmation(email string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	msg.WriteString("Subject: Newsletter subscription confirmed\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString("You're subscribed. New posts on security engineering, incident write-ups,\r\n")
	msg.WriteString("and tooling will land in this inbox as they are published.\r\n")
	msg.WriteString("\r\n")
	msg.WriteString("If this wasn't you, unsubscribe with a POST to /api/newsletter/unsubscribe.\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send confirmation to %s: %w", email, err)
	}
	return nil
}

// LogMailer records the send instead of delivering it. It stands in for the
// SMTP mailer when no mail endpoint is configured, so subscriptions keep
// working in development.
type LogMailer struct{}

func (LogMailer) SendConfirmation(email string) error {
	log.Info().Str("email", email).Msg("SMTP not configured, confirmation email logged only")
	return nil
}
