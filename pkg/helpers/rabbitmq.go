package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeclareEmailQueue declares the durable queue shared by the API (publisher)
// and the email worker (consumer).
func DeclareEmailQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	return err
}

// RabbitPublisher publishes JSON jobs to a single queue through the default
// exchange.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	if queue == "" {
		return nil, errors.New("rabbitmq: queue name is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := DeclareEmailQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue}, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON encodes body and publishes it as a persistent message with a
// fresh message id.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}
