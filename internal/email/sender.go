package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"greendrake/realty/internal/config"
)

// Sender delivers a fully rendered RFC 5322 message.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

const (
	smtpImplicitTLSPort = 465
	smtpDefaultTimeout  = 30 * time.Second
)

// SMTPSender talks to an SMTP relay. Port 465 uses implicit TLS; other ports upgrade with
// STARTTLS when the server offers it.
type SMTPSender struct {
	host     string
	addr     string
	from     string
	username string
	password string
	implicit bool
}

// NewSMTPSender returns an SMTP sender, or a LoggingSender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{from: cfg.SmtpFromAddress}
	}
	return &SMTPSender{
		host:     cfg.SmtpHost,
		addr:     net.JoinHostPort(cfg.SmtpHost, strconv.Itoa(cfg.SmtpPort)),
		from:     cfg.SmtpFromAddress,
		username: cfg.SmtpUsername,
		password: cfg.SmtpPassword,
		implicit: cfg.SmtpPort == smtpImplicitTLSPort,
	}
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: smtpDefaultTimeout}
	if s.implicit {
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.host}}
		return td.DialContext(ctx, "tcp", s.addr)
	}
	return dialer.DialContext(ctx, "tcp", s.addr)
}

// Send delivers the message, bounded by the context deadline (or 30s when there is none).
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", s.addr, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(smtpDefaultTimeout)
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !s.implicit {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(rawMessage); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end of data: %w", err)
	}
	if err := client.Quit(); err != nil {
		log.Printf("SMTP QUIT after sending to %v failed: %v", to, err)
	}

	log.Printf("Email sent via SMTP to %v (Subject: %s)", to, subject)
	return nil
}

// LoggingSender writes the message body to the process log. Used when SMTP isn't configured.
type LoggingSender struct {
	from string
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID, body := parseMessage(rawMessage)
	log.Printf("Email (not sent, no SMTP host) from=%s to=%v template=%s subject=%q\n%s", s.from, to, templateID, subject, body)
	return nil
}
