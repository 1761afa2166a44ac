package notifier

import (
	"context"
	"sync"
)

// LocalBroker fans messages out to subscribers of the same process.
type LocalBroker struct {
	mu     sync.RWMutex
	rooms  map[string]map[chan Message]struct{}
	closed bool
}

var _ Broker = (*LocalBroker)(nil)

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{rooms: make(map[string]map[chan Message]struct{})}
}

func (b *LocalBroker) Publish(_ context.Context, room, event string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msg := Message{Room: room, Event: event, Payload: append([]byte(nil), payload...)}
	for ch := range b.rooms[room] {
		offer(ch, msg)
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, room string) (*Subscription, error) {
	ch := make(chan Message, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return &Subscription{C: ch, close: func() {}}, nil
	}
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[chan Message]struct{})
	}
	b.rooms[room][ch] = struct{}{}
	b.mu.Unlock()

	done := make(chan struct{})
	sub := &Subscription{C: ch}
	sub.close = func() {
		close(done)
		b.remove(room, ch)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
		}
	}()
	return sub, nil
}

func (b *LocalBroker) remove(room string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rooms[room][ch]; !ok {
		return
	}
	delete(b.rooms[room], ch)
	if len(b.rooms[room]) == 0 {
		delete(b.rooms, room)
	}
	close(ch)
}

// Subscribers returns the number of live subscriptions of room.
func (b *LocalBroker) Subscribers(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for room, subs := range b.rooms {
		for ch := range subs {
			close(ch)
		}
		delete(b.rooms, room)
	}
	b.closed = true
	return nil
}
