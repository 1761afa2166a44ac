package notifier

import (
	"context"
	"encoding/json"
	"sync"
)

const (
	// EventCount carries the current number of eligible entries.
	EventCount = "count"

	roomPrefix = "giveaway:"
)

// Room is the channel observers of a giveaway subscribe to.
func Room(giveawayID string) string {
	return roomPrefix + giveawayID
}

type Message struct {
	Room    string          `json:"-"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Subscription delivers messages of one room until Close is called or the
// subscribing context ends. Slow readers lose messages instead of blocking
// publishers.
type Subscription struct {
	C <-chan Message

	once  sync.Once
	close func()
}

func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// Broker is a best-effort publish/subscribe transport keyed by room.
type Broker interface {
	Publish(ctx context.Context, room, event string, payload []byte) error
	Subscribe(ctx context.Context, room string) (*Subscription, error)
	Close() error
}

const subscriberBuffer = 16

func encode(event string, payload []byte) ([]byte, error) {
	return json.Marshal(Message{Event: event, Payload: payload})
}

func decode(room string, data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	msg.Room = room
	return msg, nil
}

// offer delivers msg without blocking.
func offer(ch chan<- Message, msg Message) bool {
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
