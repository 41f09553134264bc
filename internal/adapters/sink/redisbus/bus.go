// Package redisbus publishes events on a Redis Pub/Sub channel for live
// consumers and appends them to a capped Redis stream for replay.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/courtside/internal/domain/model"
)

// streamMaxLen is the approximate cap applied with XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// Bus is the event-bus sink.
type Bus struct {
	rdb     *redis.Client
	channel string
	stream  string
}

// Connect opens a client for addr and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// New creates a Bus. An empty stream disables the stream append.
func New(rdb *redis.Client, channel, stream string) *Bus {
	return &Bus{rdb: rdb, channel: channel, stream: stream}
}

// Name implements sink.Sink.
func (b *Bus) Name() string { return "redis" }

// Deliver implements sink.Sink.
func (b *Bus) Deliver(ctx context.Context, ev model.Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.channel, err)
	}
	if b.stream == "" {
		return nil
	}

	args := &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    string(ev.Type),
			"game_id": ev.GameID,
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", b.stream, err)
	}
	return nil
}

// Subscribe streams decoded events from the channel until ctx is done. The
// returned channel is closed when the subscription ends.
func (b *Bus) Subscribe(ctx context.Context) (<-chan model.Event, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", b.channel, err)
	}

	out := make(chan model.Event, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev model.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Encode is the wire form shared by the channel and the stream.
func Encode(ev model.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("redis: marshal event %s: %w", ev.ID, err)
	}
	return payload, nil
}
