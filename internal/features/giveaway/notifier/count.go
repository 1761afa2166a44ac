package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

type CountPayload struct {
	Count int `json:"count"`
}

// CountNotifier broadcasts entry counts without ever blocking or failing
// the caller. Publishes run on a bounded worker pool; when the pool is
// saturated the update is dropped, the next mutation publishes a fresh total.
type CountNotifier struct {
	broker Broker
	pool   *ants.Pool
	logger *zap.Logger
}

func NewCountNotifier(broker Broker, workers int, logger *zap.Logger) (*CountNotifier, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create notifier pool: %w", err)
	}
	return &CountNotifier{broker: broker, pool: pool, logger: logger}, nil
}

func (n *CountNotifier) PublishCount(giveawayID string, count int) {
	payload, err := json.Marshal(CountPayload{Count: count})
	if err != nil {
		n.logger.Warn("Failed to encode count", zap.String("giveaway_id", giveawayID), zap.Error(err))
		return
	}

	room := Room(giveawayID)
	err = n.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := n.broker.Publish(ctx, room, EventCount, payload); err != nil {
			n.logger.Warn("Failed to publish count",
				zap.String("room", room),
				zap.Int("count", count),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		n.logger.Debug("Count update dropped", zap.String("room", room), zap.Error(err))
	}
}

// Close waits up to timeout for queued publishes, then stops the pool.
func (n *CountNotifier) Close(timeout time.Duration) error {
	return n.pool.ReleaseTimeout(timeout)
}
