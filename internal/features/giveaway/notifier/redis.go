package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker publishes rooms as Redis pub/sub channels, so every API
// instance behind a load balancer sees every count.
type RedisBroker struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ Broker = (*RedisBroker)(nil)

func NewRedisBroker(client redis.UniversalClient, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, room, event string, payload []byte) error {
	data, err := encode(event, payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := b.client.Publish(ctx, room, data).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", room, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, room string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, room)
	// wait for the subscription to be confirmed before returning
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe to %s: %w", room, err)
	}

	out := make(chan Message, subscriberBuffer)
	done := make(chan struct{})
	sub := &Subscription{C: out}
	sub.close = func() {
		close(done)
		_ = ps.Close()
	}

	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case <-done:
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				msg, err := decode(room, []byte(m.Payload))
				if err != nil {
					b.logger.Debug("Dropping undecodable message", zap.String("room", room), zap.Error(err))
					continue
				}
				offer(out, msg)
			}
		}
	}()
	return sub, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisBroker) Close() error {
	return nil
}
