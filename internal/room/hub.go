package room

import (
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. Subscribers are
// expected to drain promptly; Publish blocks rather than drop, since losing
// a Disconnected event would leak a room.
const subscriberBuffer = 64

// subscriber owns one fan-out channel. Sends and close are serialized on its
// mutex so a racing unsubscribe or hub close never closes the channel out
// from under an in-flight delivery.
type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *subscriber) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- ev
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub fans a single room event stream out to multiple independent
// subscribers, so lifecycle handling and call-state observation stay
// decoupled listeners over one stream.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

// Subscribe registers a new subscriber and returns its event channel plus an
// unsubscribe function. The channel is closed on unsubscribe or hub close;
// unsubscribe may wait for an in-flight delivery to the channel to finish.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	if h.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.subs[id] = sub

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.close()
	}
	return sub.ch, unsubscribe
}

// Publish delivers ev to every current subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.send(ev)
	}
}

// Run forwards events from a session stream into the hub until the stream
// closes, then closes the hub. It is meant to be run in its own goroutine.
func (h *Hub) Run(events <-chan Event) {
	for ev := range events {
		h.Publish(ev)
	}
	h.Close()
}

// Close closes all subscriber channels. Further Publish calls are dropped
// and further Subscribe calls return a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for id, sub := range h.subs {
		delete(h.subs, id)
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
