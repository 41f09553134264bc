// Package amqpfeed consumes game updates from an AMQP queue. Message bodies
// use the same JSON form as the webhook.
package amqpfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/okian/courtside/internal/adapters/mq/queue"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

const (
	source        = "amqp"
	prefetch      = 100
	heartbeat     = 30 * time.Second
	minBackoff    = time.Second
	maxBackoff    = 30 * time.Second
	consumerLabel = "courtside"
)

// Ingester accepts one update. accepted is false when the update was
// debounced.
type Ingester interface {
	Ingest(ctx context.Context, u *model.GameUpdate, source string) (accepted bool, err error)
}

// Consumer reads updates from a durable queue with manual acks.
type Consumer struct {
	url    string
	queue  string
	ingest Ingester
	log    logger.Logger
}

// New creates a Consumer for queueName on url.
func New(url, queueName string, ingest Ingester, log logger.Logger) *Consumer {
	return &Consumer{url: url, queue: queueName, ingest: ingest, log: log}
}

// Run consumes until ctx is done, reconnecting with exponential backoff when
// the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	var b backoff
	for {
		err := c.consume(ctx, b.reset)
		if ctx.Err() != nil {
			return nil
		}
		wait := b.next()
		c.log.Warn(ctx, "amqp consumer disconnected",
			logger.Error(err), logger.Duration("retry_in", wait))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// backoff doubles from minBackoff up to maxBackoff; reset starts it over.
type backoff struct {
	cur time.Duration
}

func (b *backoff) next() time.Duration {
	switch {
	case b.cur == 0:
		b.cur = minBackoff
	case b.cur < maxBackoff:
		b.cur = min(b.cur*2, maxBackoff)
	}
	return b.cur
}

func (b *backoff) reset() { b.cur = 0 }

// consume runs one connection. consuming is called once deliveries flow.
func (c *Consumer) consume(ctx context.Context, consuming func()) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{Heartbeat: heartbeat, Locale: "en_US"})
	if err != nil {
		return fmt.Errorf("amqpfeed: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqpfeed: channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("amqpfeed: qos: %w", err)
	}
	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqpfeed: declare %s: %w", c.queue, err)
	}
	msgs, err := ch.Consume(q.Name, consumerLabel, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqpfeed: consume %s: %w", q.Name, err)
	}

	c.log.Info(ctx, "amqp consumer started", logger.String("queue", q.Name))
	consuming()
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("amqpfeed: connection closed")
			}
			return fmt.Errorf("amqpfeed: connection closed: %w", amqpErr)
		case d, ok := <-msgs:
			if !ok {
				return errors.New("amqpfeed: delivery channel closed")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle ingests one delivery and settles it. Malformed and invalid messages
// are dropped; a full queue sends the message back for redelivery.
// The ingester counts received updates.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var u model.GameUpdate
	if err := json.Unmarshal(d.Body, &u); err != nil {
		metrics.RecordUpdateRejected("malformed")
		c.log.Warn(ctx, "dropping malformed message", logger.Error(err))
		_ = d.Nack(false, false)
		return
	}

	_, err := c.ingest.Ingest(ctx, &u, source)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, queue.ErrQueueFull):
		_ = d.Nack(false, true)
	default:
		c.log.Warn(ctx, "dropping rejected update", logger.String("game_id", u.ID), logger.Error(err))
		_ = d.Nack(false, false)
	}
}
