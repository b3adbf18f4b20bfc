// Package delivery sends composed reports to users.
package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"correspondent/internal/config"
	"correspondent/internal/domain"
	"correspondent/internal/ports"
)

// SMTPDeliverer emails the digest as plain text.
type SMTPDeliverer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	send     func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ ports.Deliverer = (*SMTPDeliverer)(nil)

// NewSMTPDeliverer builds a deliverer from configuration.
func NewSMTPDeliverer(cfg config.SMTPConfig) *SMTPDeliverer {
	return &SMTPDeliverer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		send:     smtp.SendMail,
	}
}

// Deliver sends the report to the user's email address.
func (d *SMTPDeliverer) Deliver(ctx context.Context, user domain.User, report domain.Report) error {
	if d.host == "" || d.from == "" {
		return fmt.Errorf("smtp deliverer misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", d.host, d.port)
	var auth smtp.Auth
	if d.username != "" {
		auth = smtp.PlainAuth("", d.username, d.password, d.host)
	}

	subject := fmt.Sprintf("Weekly report for %s", user.Name)
	msg := []byte(fmt.Sprintf("From: %s <%s>\r\n", d.fromName, d.from) +
		fmt.Sprintf("To: %s\r\n", user.Email) +
		fmt.Sprintf("Subject: %s\r\n", subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		FormatDigest(report) + "\r\n")

	if err := d.send(addr, auth, d.from, []string{user.Email}, msg); err != nil {
		return fmt.Errorf("send report via smtp: %w", err)
	}
	return nil
}

// FormatDigest renders the report body shared by all deliverers.
func FormatDigest(report domain.Report) string {
	var b strings.Builder
	for _, item := range report.Items {
		fmt.Fprintf(&b, "- %s\nScore: %.0f\nMatched: %s\n%s\n\n",
			item.Item.Title,
			item.Score,
			strings.Join(item.Keywords, ", "),
			item.Item.ID)
	}
	return b.String()
}
