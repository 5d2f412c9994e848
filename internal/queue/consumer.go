package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/mailer"
)

// Consumer listens on the ticket.issued queue and delivers the
// confirmation mail for each event.  Mail failures are logged and the
// message is rejected without requeue; notification is best-effort and
// must never block or roll back issuance.
type Consumer struct {
	url    string
	mailer mailer.Mailer
	log    *logger.Logger
}

// NewConsumer returns a consumer for the given broker URL.
func NewConsumer(url string, m mailer.Mailer, log *logger.Logger) *Consumer {
	return &Consumer{url: url, mailer: m, log: log}
}

// Start runs the consume loop until the context is cancelled.  Broker
// outages are retried with exponential backoff capped at 30 seconds.
func (c *Consumer) Start(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("ticket consumer dial failed", "error", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.log.Warn("ticket consume loop ended", "error", err)
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set qos failed", "error", err)
	}
	if _, err := ch.QueueDeclare(ticketIssuedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ticketIssuedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.log.Error("ticket notification failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" {
		c.log.Warn("ticket event without recipient, skipping", "ticket_id", ev.TicketID)
		return nil
	}
	subject := fmt.Sprintf("Your ticket for %s", ev.TournamentName)
	msg := fmt.Sprintf(
		"Registration confirmed.\n\nTicket code: %s\nTournament: %s\nAmount paid: %d cents\nIssued at: %s\n",
		ev.Code, ev.TournamentName, ev.AmountPaidCents, ev.IssuedAt,
	)
	return c.mailer.Send(ctx, ev.Email, subject, msg)
}
