package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/courtside/tournament-registration/internal/logger"
)

const ticketIssuedQueue = "ticket.issued"

// Publisher pushes ticket events to RabbitMQ.  Each publish dials a
// fresh connection so a broker restart between publishes never leaves
// the service holding a dead channel; publish volume here is one
// message per issued ticket, so the overhead does not matter.  Errors
// are logged and returned so callers can ignore failures without
// interrupting the request flow.
type Publisher struct {
	url string
	log *logger.Logger
}

// NewPublisher returns a publisher for the given broker URL.
func NewPublisher(url string, log *logger.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishTicketIssued sends a TicketIssuedEvent to the ticket.issued
// queue.  Messages are marked persistent so they survive a broker
// restart.
func (p *Publisher) PublishTicketIssued(ctx context.Context, event TicketIssuedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("rabbitmq dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("rabbitmq channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(ticketIssuedQueue, true, false, false, false, nil); err != nil {
		p.log.Error("rabbitmq queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal ticket event failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ticketIssuedQueue, false, false, pub); err != nil {
		p.log.Error("rabbitmq publish failed", "error", err)
		return err
	}
	return nil
}
