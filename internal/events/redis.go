package events

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/model"
)

const DefaultChannel = "appointments_events"

// RedisBus publishes envelopes on a Redis pub/sub channel so that sessions
// in other processes see each other's changes.
type RedisBus struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

func NewRedisBus(url, channel, origin string, logger *zap.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("events: invalid redis url: %w", err)
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{
		client:  redis.NewClient(opts),
		channel: channel,
		origin:  origin,
		logger:  logger.Named("redis_bus"),
	}, nil
}

func (b *RedisBus) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return &model.NetworkError{Op: "redis ping", Err: err}
	}
	return nil
}

func (b *RedisBus) Publish(ctx context.Context, ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	payload, err := Marshal(ev, b.origin)
	if err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return &model.NetworkError{Op: "publish event", Err: err}
	}
	return nil
}

// Subscribe confirms the subscription before returning, then delivers
// decoded events in channel order until ctx is cancelled. Envelopes that
// fail to decode are logged and skipped.
func (b *RedisBus) Subscribe(ctx context.Context, handler func(model.Event)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return &model.NetworkError{Op: "subscribe", Err: err}
	}
	ch := pubsub.Channel()
	b.logger.Info("listening for appointment events", zap.String("channel", b.channel))

	go func() {
		defer pubsub.Close()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, env, err := Unmarshal([]byte(msg.Payload))
				if err != nil {
					b.logger.Warn("dropped undecodable event", zap.Error(err), zap.String("payload", msg.Payload))
					continue
				}
				b.logger.Debug("event received", zap.String("envelope", env.ID), zap.String("kind", env.Kind), zap.String("origin", env.Origin))
				handler(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
