// Package notify implements the email side of delivery. The scheduler only
// sees the delivery.Notifier interface; this is the production SMTP
// implementation.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/config"
)

const dialTimeout = 15 * time.Second

type SMTPNotifier struct {
	cfg config.SMTPConfig
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// SendPrompt submits one prompt email and returns the feedback token embedded
// in it. The token is opaque to the scheduler; the reply-handling side uses
// it to associate inbound mail with the delivery.
func (n *SMTPNotifier) SendPrompt(ctx context.Context, email, categoryName, promptText string) (string, error) {
	token := uuid.NewString()
	msg := BuildMessage(n.cfg.From, email, categoryName, promptText, token)

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dialing smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	hasStartTLS, _ := client.Extension("STARTTLS")
	if hasStartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return "", fmt.Errorf("starttls: %w", err)
		}
	}
	if n.cfg.Username != "" {
		// Credentials never go over a cleartext connection unless the
		// config explicitly opts in for a TLS-less local relay.
		if !hasStartTLS && !n.cfg.AllowCleartextAuth {
			return "", fmt.Errorf("smtp server %s does not offer STARTTLS, not sending credentials in cleartext", n.cfg.Host)
		}
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return "", fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(email); err != nil {
		return "", fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return "", fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing message: %w", err)
	}
	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("smtp quit: %w", err)
	}
	return token, nil
}

// BuildMessage renders the raw RFC 5322 message. Kept separate from the
// transport so the formatting is testable without a server.
func BuildMessage(from, to, categoryName, promptText, token string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Your " + categoryName + " prompt is here\r\n")
	b.WriteString("X-Inklings-Feedback: " + token + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Today's " + categoryName + " prompt:\r\n\r\n")
	b.WriteString(promptText + "\r\n\r\n")
	b.WriteString("Reply to this email to journal your answer.\r\n")
	b.WriteString("ref: " + token + "\r\n")
	return []byte(b.String())
}
