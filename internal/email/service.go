package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"motolens/internal/config"
	"net"
	"net/smtp"
	"sync"
	"time"
)

// EmailSender defines the interface for sending emails
type EmailSender interface {
	SendVerificationEmail(to, firstName, token string) error
	SendPasswordResetEmail(to, firstName, token string) error
	SendPasswordChangedEmail(to, firstName string) error
}

// Service implements the EmailSender interface over a pooled SMTP connection
type Service struct {
	config config.EmailConfig
	conn   net.Conn
	client *smtp.Client
	mu     sync.Mutex
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{config: cfg}
}

// deadline bounds the SMTP round trips of one send. A server that stalls
// mid-conversation fails the send instead of hanging the sending goroutine.
func (s *Service) deadline() time.Time {
	return time.Now().Add(s.config.SendTimeout)
}

// dialSMTP establishes an SMTP connection, reusing a live one when possible.
// Caller must hold s.mu.
func (s *Service) dialSMTP() (*smtp.Client, error) {
	if s.client != nil {
		s.conn.SetDeadline(s.deadline())
		if err := s.client.Noop(); err == nil {
			return s.client, nil
		}
		s.dropClient()
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	conn, err := net.DialTimeout("tcp", addr, s.config.SendTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	// The greeting and AUTH exchange run under the same deadline as the send
	if err := conn.SetDeadline(s.deadline()); err != nil {
		conn.Close()
		return nil, err
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.Auth(smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to authenticate with SMTP server: %w", err)
	}

	s.conn = conn
	s.client = client
	return client, nil
}

// dropClient discards the pooled connection. Caller must hold s.mu.
func (s *Service) dropClient() {
	if s.client != nil {
		s.client.Close()
	}
	s.client = nil
	s.conn = nil
}

// sendMail sends an email using the pooled SMTP connection. A send that
// errors leaves the SMTP conversation in an unknown state, so the connection
// is dropped rather than returned to the pool.
func (s *Service) sendMail(to []string, msg []byte) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if err != nil {
			s.dropClient()
		}
	}()

	client, err := s.dialSMTP()
	if err != nil {
		return err
	}
	if err := s.conn.SetDeadline(s.deadline()); err != nil {
		return err
	}

	if err := client.Mail(s.config.SMTPUsername); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message writer: %w", err)
	}

	return nil
}

// Close closes the SMTP connection
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.conn.SetDeadline(s.deadline())
		err := s.client.Quit()
		s.client = nil
		s.conn = nil
		return err
	}
	return nil
}

func (s *Service) checkConfig() error {
	if s.config.SMTPHost == "" || s.config.SMTPPort == 0 || s.config.SMTPUsername == "" ||
		s.config.SMTPPassword == "" || s.config.FromAddress == "" || s.config.AppURL == "" {
		return fmt.Errorf("incomplete email configuration")
	}
	return nil
}

func (s *Service) send(to, subject, tmplText string, data map[string]string) error {
	tmpl, err := template.New(subject).Parse(tmplText)
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	msg := fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s", to, s.config.FromAddress, subject, body.String())

	return s.sendMail([]string{to}, []byte(msg))
}

func (s *Service) SendVerificationEmail(to, firstName, token string) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	verificationURL := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", s.config.AppURL, token)
	err := s.send(to, "Verify Your MotoLens Email Address", `
		<h2>Hello {{.FirstName}},</h2>
		<p>Please verify your email address by clicking the link below:</p>
		<p><a href="{{.URL}}">Verify Email Address</a></p>
		<p>This link will expire in 24 hours.</p>
		<p>If you did not create an account, no further action is required.</p>
	`, map[string]string{"FirstName": firstName, "URL": verificationURL})
	if err != nil {
		log.Printf("SMTP error details: %+v", err)
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (s *Service) SendPasswordResetEmail(to, firstName, token string) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.AppURL, token)
	err := s.send(to, "Reset Your MotoLens Password", `
		<h2>Hello {{.FirstName}},</h2>
		<p>You have requested to reset your password. Click the link below to proceed:</p>
		<p><a href="{{.URL}}">Reset Password</a></p>
		<p>This link will expire in 1 hour.</p>
		<p>If you did not request a password reset, please ignore this email.</p>
	`, map[string]string{"FirstName": firstName, "URL": resetURL})
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (s *Service) SendPasswordChangedEmail(to, firstName string) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	err := s.send(to, "Your MotoLens Password Was Changed", `
		<h2>Hello {{.FirstName}},</h2>
		<p>Your password was just changed.</p>
		<p>If this was you, no further action is required.</p>
		<p>If you did not change your password, reset it immediately and contact support.</p>
	`, map[string]string{"FirstName": firstName})
	if err != nil {
		return fmt.Errorf("failed to send password changed email: %w", err)
	}
	return nil
}
