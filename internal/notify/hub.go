package notify

import (
	"sync"

	"github.com/iliyamo/expo-access/internal/metrics"
	"github.com/iliyamo/expo-access/internal/model"
)

// Subscriber is one live listener, typically a dashboard websocket.
type Subscriber struct {
	id        uint64
	recipient string
	ch        chan model.Notification
}

// C delivers notifications.  It is closed on Unsubscribe.
func (s *Subscriber) C() <-chan model.Notification { return s.ch }

// Recipient is the inbox this subscriber listens to.
func (s *Subscriber) Recipient() string { return s.recipient }

// Hub fans notifications out to live subscribers.  Each subscriber owns a
// bounded buffer; when it is full the notification is dropped for that
// subscriber only.  Nothing is replayed to late subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscriber
	nextID uint64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: make(map[uint64]*Subscriber), buffer: buffer}
}

// Subscribe registers a listener for recipient.
func (h *Hub) Subscribe(recipient string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &Subscriber{id: h.nextID, recipient: recipient, ch: make(chan model.Notification, h.buffer)}
	h.subs[s.id] = s
	metrics.LiveSubscribers.Inc()
	return s
}

// Unsubscribe removes s and closes its channel.  Calling it twice is safe.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
	metrics.LiveSubscribers.Dec()
}

// Broadcast hands n to every subscriber of n.Recipient without blocking.
// It returns how many subscribers received it and how many dropped it.
func (h *Hub) Broadcast(n model.Notification) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.recipient != n.Recipient {
			continue
		}
		select {
		case s.ch <- n:
			delivered++
		default:
			dropped++
		}
	}
	metrics.NotificationsDelivered.Add(float64(delivered))
	metrics.NotificationsDropped.Add(float64(dropped))
	return delivered, dropped
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
