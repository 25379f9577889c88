package realtime

import (
	"context"
	"errors"
	"sync"
)

var ErrHubClosed = errors.New("realtime hub closed")

const defaultBuffer = 16

type subscription struct {
	filter Filter
	ch     chan Event
}

// Hub fans events out to subscribers. Publish never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber, which
// is safe for consumers that re-fetch on any event since one is still pending.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[uint64]*subscription), buffer: buffer}
}

func (h *Hub) Subscribe(ctx context.Context, filter Filter) (<-chan Event, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	id := h.nextID
	h.nextID++
	sub := &subscription{filter: filter, ch: make(chan Event, h.buffer)}
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(id)
	}()

	return sub.ch, nil
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers ev to every matching subscriber and reports how many
// accepted it.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
