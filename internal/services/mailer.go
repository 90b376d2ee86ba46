package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends the password-reset email. SMTP settings come from the config
// built at startup; nothing here reads the environment.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	appURL   string
}

func NewMailer(host string, port int, username, password, from, appURL string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		appURL:   appURL,
	}
}

// SendPasswordReset mails the reset link for token to the given address. The
// token is valid for one hour; the email says so.
func (m *Mailer) SendPasswordReset(to, token string) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", m.appURL, token)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password Reset Request")
	msg.SetBody("text/html", fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>You requested a password reset for your Cyberthreat Guardian account.</p>
		<p>Click the link below to reset your password (valid for 1 hour):</p>
		<a href="%s">%s</a>
		<p>If you did not request this, please ignore this email.</p>
	`, resetLink, resetLink))

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	return dialer.DialAndSend(msg)
}
