package tools

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends reset links over SMTP.
type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (m Mailer) Configured() bool {
	return m.Host != "" && m.From != ""
}

// SendResetLink emails the reset link to the user.
func (m Mailer) SendResetLink(to string, link string, expiryMinutes int) error {
	if !m.Configured() {
		return fmt.Errorf("smtp not configured (host/from missing)")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password reset request")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello,\n\nA password reset was requested for this account. If you requested it, open the link below to reset your password:\n\n%s\n\nIf you didn't request this, ignore this email.\nThis link expires in %d minutes.\n",
		link, expiryMinutes,
	))

	d := gomail.NewDialer(m.Host, m.Port, m.User, m.Pass)
	return d.DialAndSend(msg)
}
