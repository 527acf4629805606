package microblog

import (
	"fmt"
	"io"
	"net/smtp"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the application logger: stdout, an append-only log file,
// and, when mail is configured, an error-level notification to the admins.
func NewLogger(cfg *Config, mailer *Mailer) (*zerolog.Logger, error) {
	writers := []io.Writer{os.Stdout}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
	}

	if mailer.Enabled() {
		writers = append(writers, &errorMailWriter{mailer: mailer})
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return &log, nil
}

// Mailer delivers operational error reports to the admin addresses over SMTP.

type Mailer struct {
	host     string
	port     int
	username string
	password string
	sender   string
	admins   []string
}

func NewMailer(cfg *Config) *Mailer {
	return &Mailer{
		host:     cfg.MailHost,
		port:     cfg.MailPort,
		username: cfg.MailUsername,
		password: cfg.MailPassword,
		sender:   cfg.MailSender,
		admins:   cfg.AdminEmails,
	}
}

func (m *Mailer) Enabled() bool {
	return m.host != "" && len(m.admins) > 0
}

func (m *Mailer) Send(subject string, body string) error {
	if !m.Enabled() {
		return nil
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.sender, subject, body))
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, auth, m.sender, m.admins, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// errorMailWriter forwards error-level log events to the mailer. Delivery
// happens off the request goroutine and failures are swallowed: a broken
// mail server must not take logging down with it.
type errorMailWriter struct {
	mailer *Mailer
}

func (w *errorMailWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (w *errorMailWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level < zerolog.NoLevel {
		// The log package reuses p after this call returns.
		body := string(p)
		go func() {
			_ = w.mailer.Send("microblog failure", body)
		}()
	}
	return len(p), nil
}
