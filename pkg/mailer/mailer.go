// Package mailer delivers HTML email through an SMTP relay.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/k3a/html2text"
	"github.com/ventech/storefront-backend/pkg/config"
	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound email. HTML is required; a plain-text alternative is derived from it.
type Message struct {
	To          string
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Gateway is the outbound mail surface used by the notification dispatcher.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through a gomail dialer. It holds only immutable config and
// is safe for concurrent use; each Send opens its own connection.
type SMTPMailer struct {
	fromName    string
	fromAddress string
	send        func(...*gomail.Message) error
}

// NewSMTP builds a mailer from SMTP config.
func NewSMTP(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	sender := cfg.Sender()
	if sender == "" {
		return nil, errors.New("smtp sender address is required")
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.ImplicitTLS
	return &SMTPMailer{
		fromName:    cfg.FromName,
		fromAddress: sender,
		send:        dialer.DialAndSend,
	}, nil
}

// Send renders msg and hands it to the relay.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	built, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.send(built); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Message, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, errors.New("recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, errors.New("subject is required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return nil, errors.New("html body is required")
	}

	out := gomail.NewMessage()
	out.SetAddressHeader("From", m.fromAddress, m.fromName)
	out.SetHeader("To", to)
	if reply := strings.TrimSpace(msg.ReplyTo); reply != "" {
		out.SetHeader("Reply-To", reply)
	}
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", PlainText(msg.HTML))
	out.AddAlternative("text/html", msg.HTML)

	for _, att := range msg.Attachments {
		content := att.Content
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		out.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		)
	}
	return out, nil
}

// PlainText converts an HTML body into its text alternative.
func PlainText(html string) string {
	return strings.TrimSpace(html2text.HTML2TextWithOptions(html, html2text.WithUnixLineBreaks()))
}
