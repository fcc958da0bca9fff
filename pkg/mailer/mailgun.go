package mailer

import (
	"context"
	"errors"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun delivers email through the Mailgun HTTP API.
type Mailgun struct {
	Sender  string
	Timeout time.Duration

	client *mg.MailgunImpl
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{
		Sender:  sender,
		Timeout: 10 * time.Second,
		client:  mg.NewMailgun(domain, apiKey),
	}
}

// Send delivers one message. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if m.client == nil || m.Sender == "" {
		return errors.New("mailgun: not configured")
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
