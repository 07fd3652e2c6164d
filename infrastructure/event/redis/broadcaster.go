package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/fault"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
)

// Broadcaster publishes audit events to Redis. It implements the
// publisher's Sink interface; Subscribe is the reading side.
type Broadcaster struct {
	client *redis.Client
	prefix string
}

// NewBroadcaster connects to Redis and verifies the connection.
func NewBroadcaster(ctx context.Context, cfg Config, opts ...ConfigOption) (*Broadcaster, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(fault.ErrConnectionFailed, err)
	}

	return NewBroadcasterFromClient(client, cfg.ChannelPrefix), nil
}

// NewBroadcasterFromClient wraps an existing client.
func NewBroadcasterFromClient(client *redis.Client, prefix string) *Broadcaster {
	return &Broadcaster{client: client, prefix: prefix}
}

// Channel returns the channel events for policyID are published on.
func (b *Broadcaster) Channel(policyID string) string {
	return b.prefix + policyID
}

// Deliver publishes every event on its policy's channel in one pipeline.
func (b *Broadcaster) Deliver(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	pipe := b.client.Pipeline()
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}
		pipe.Publish(ctx, b.Channel(e.PolicyID), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(fault.ErrConnectionFailed, err)
	}
	return nil
}

// Subscribe streams events broadcast for policyID until ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, policyID string) (<-chan event.Event, error) {
	sub := b.client.Subscribe(ctx, b.Channel(policyID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Join(fault.ErrConnectionFailed, err)
	}

	out := make(chan event.Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e event.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					logging.Warn().
						Add(logging.Component("redis")).
						Add(logging.Str("channel", msg.Channel)).
						Add(logging.ErrorField(err)).
						Msg("dropping undecodable event")
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the Redis client.
func (b *Broadcaster) Close() error {
	return b.client.Close()
}
