package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Publisher is the part of the RabbitMQ publisher QueueSender needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender hands emails to the email worker through RabbitMQ, so delivery
// happens outside the request.
type QueueSender struct {
	Pub Publisher
}

func NewQueueSender(pub Publisher) *QueueSender {
	return &QueueSender{Pub: pub}
}

func (q *QueueSender) Send(ctx context.Context, to, subject, text, html string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("mailer: empty recipient")
	}
	return q.Pub.PublishJSON(ctx, EmailJob{To: to, Subject: subject, Text: text, HTML: html})
}

// LogSender only logs; used when MAIL_SEND_ENABLED=false.
type LogSender struct {
	Logger *logrus.Logger
}

func (l LogSender) Send(_ context.Context, to, subject, _, _ string) error {
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail sending disabled, email dropped")
	}
	return nil
}

var (
	_ Sender = (*QueueSender)(nil)
	_ Sender = LogSender{}
	_ Sender = (*Mailgun)(nil)
)
