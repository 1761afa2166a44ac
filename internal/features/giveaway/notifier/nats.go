package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBroker maps room "giveaway:<id>" to subject "giveaway.<id>".
type NATSBroker struct {
	conn   *nats.Conn
	logger *zap.Logger
}

var _ Broker = (*NATSBroker)(nil)

func NewNATSBroker(conn *nats.Conn, logger *zap.Logger) *NATSBroker {
	return &NATSBroker{conn: conn, logger: logger}
}

func Subject(room string) string {
	return strings.ReplaceAll(room, ":", ".")
}

func (b *NATSBroker) Publish(_ context.Context, room, event string, payload []byte) error {
	data, err := encode(event, payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := b.conn.Publish(Subject(room), data); err != nil {
		return fmt.Errorf("nats publish to %s: %w", room, err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(ctx context.Context, room string) (*Subscription, error) {
	in := make(chan *nats.Msg, subscriberBuffer)
	natsSub, err := b.conn.ChanSubscribe(Subject(room), in)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe to %s: %w", room, err)
	}

	out := make(chan Message, subscriberBuffer)
	done := make(chan struct{})
	sub := &Subscription{C: out}
	sub.close = func() {
		close(done)
		if err := natsSub.Unsubscribe(); err != nil {
			b.logger.Debug("NATS unsubscribe failed", zap.String("room", room), zap.Error(err))
		}
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case <-done:
				return
			case m := <-in:
				msg, err := decode(room, m.Data)
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

// Close is a no-op; the NATS connection is owned by the caller.
func (b *NATSBroker) Close() error {
	return nil
}
