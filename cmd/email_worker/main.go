package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/config"
	"github.com/oksasatya/flowery-users/pkg/helpers"
	"github.com/oksasatya/flowery-users/pkg/mailer"
	mailtpl "github.com/oksasatya/flowery-users/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareEmailQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			var job mailer.EmailJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				logger.WithError(err).Warn("bad message")
				_ = msg.Nack(false, false)
				continue
			}
			helpers.PrepareEmailJob(&job)
			if err := job.Validate(); err != nil {
				helpers.LogError(logger, "dropping email job", err, logrus.Fields{"message_id": msg.MessageId})
				_ = msg.Nack(false, false)
				continue
			}

			subject, text, html := job.Subject, job.Text, job.HTML
			if job.Template != "" {
				s, t, h, rerr := mailtpl.Render(job.Template, job.Data)
				if rerr != nil {
					helpers.LogError(logger, "render failed", rerr, logrus.Fields{"template": job.Template})
					_ = msg.Nack(false, false)
					continue
				}
				subject, text, html = s, t, h
			}

			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := mg.Send(c, job.To, subject, text, html)
			cancel()
			if err != nil {
				helpers.LogError(logger, "send failed", err, logrus.Fields{"to": job.To})
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
			helpers.LogInfo(logger, "email sent", logrus.Fields{"to": job.To, "subject": subject})
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
