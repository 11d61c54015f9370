// Package notify delivers alarm trigger alerts by email. It is wired
// into the monitoring loop as an optional sink: when SMTP settings are
// absent the mailer is disabled and every send is a silent no-op.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Notifier delivers an out-of-band alert. Implementations must never
// block the monitoring loop for long; failures are the caller's to log.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Settings holds SMTP delivery configuration. Host and Recipient are
// required for the mailer to be enabled.
type Settings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
}

// Enabled reports whether enough configuration is present to deliver.
func (s Settings) Enabled() bool {
	return s.Host != "" && s.Recipient != ""
}

const (
	sendTimeout  = 10 * time.Second
	maxAttempts  = 3
	retryBackoff = 300 * time.Millisecond
)

// Mailer sends alert mail over SMTP with STARTTLS. Up to three
// attempts are made with linear backoff.
type Mailer struct {
	settings Settings
	logger   *slog.Logger

	// send is overridable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates a Mailer. A disabled Settings produces a mailer
// whose Notify always succeeds without sending.
func NewMailer(settings Settings, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if settings.Port == 0 {
		settings.Port = 587
	}
	if settings.From == "" {
		settings.From = "resmon@" + settings.Host
	}
	m := &Mailer{settings: settings, logger: logger}
	m.send = m.sendSTARTTLS
	return m
}

// Notify delivers one alert message. Disabled mailers return nil
// immediately.
func (m *Mailer) Notify(ctx context.Context, subject, body string) error {
	if !m.settings.Enabled() {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.settings.Host, m.settings.Port)
	var auth smtp.Auth
	if m.settings.Username != "" {
		auth = smtp.PlainAuth("", m.settings.Username, m.settings.Password, m.settings.Host)
	}
	msg := m.message(subject, body)

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = m.send(addr, auth, m.settings.From, []string{m.settings.Recipient}, msg)
		if err == nil {
			return nil
		}
		m.logger.Warn("alert mail attempt failed", "attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * retryBackoff)
	}
	return fmt.Errorf("alert mail to %s: %w", m.settings.Recipient, err)
}

// message builds an RFC 5322 message with CRLF line endings.
func (m *Mailer) message(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.settings.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.settings.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(subject, "\n", " "))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// sendSTARTTLS dials, upgrades to TLS, authenticates, and sends.
func (m *Mailer) sendSTARTTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, sendTimeout)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, m.settings.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.settings.Host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
