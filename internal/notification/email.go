package notification

import (
	"fmt"
	"net/smtp"
	"net/url"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	// BaseURL is the public URL links are built against.
	BaseURL string
}

// EmailService delivers account emails over SMTP. It satisfies the
// auth.Notifier interface.
type EmailService struct {
	config EmailConfig
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// SendActivationToken emails the address verification link.
func (s *EmailService) SendActivationToken(to, token string) error {
	verifyURL := s.link("/verify-email", token)
	subject := "Verify Your Email Address"
	body := fmt.Sprintf(`<html><body>
		<h2>Verify Your Email Address</h2>
		<p>Thank you for registering! Please verify your email address to complete your registration.</p>
		<p><a href="%s">Click here to verify your email</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 24 hours.</p>
	</body></html>`, verifyURL, verifyURL)
	return s.sendEmail(to, subject, body)
}

// SendRecoveryToken emails the link that starts two-factor recovery for
// a lost authenticator device.
func (s *EmailService) SendRecoveryToken(to, token string) error {
	recoveryURL := s.link("/recover-mfa", token)
	subject := "Recover Access to Your Account"
	body := fmt.Sprintf(`<html><body>
		<h2>Recover Access to Your Account</h2>
		<p>A two-factor recovery has been requested for your account.</p>
		<p><a href="%s">Click here to continue recovery</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>If you did not request this, please ignore this email and review your account security.</p>
	</body></html>`, recoveryURL, recoveryURL)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.config.BaseURL, path, url.QueryEscape(token))
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
