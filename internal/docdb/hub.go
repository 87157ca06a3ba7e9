package docdb

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberQueueSize bounds how far a subscriber can fall behind
// before the hub drops it, per spec.md §4.6: "overflow to a slow
// subscriber is remedied by dropping that subscriber and closing its
// stream."
const subscriberQueueSize = 64

// Hub is the per-key change-subscriber registry. Grounded on
// syntrixbase/syntrix's internal/realtime.Hub: a map of live
// subscribers with a non-blocking, select/default broadcast, adapted
// from a websocket client set to a key-addressed, one-directional
// channel set (this engine only ever pushes ChangeEvents, SSE is
// unidirectional).
type Hub struct {
	mu    sync.Mutex
	byKey map[string]map[string]*subscriber
	all   map[string]*subscriber
}

type subscriber struct {
	id  string
	key string // "" for a SubscribeAll subscriber
	ch  chan ChangeEvent
}

func NewHub() *Hub {
	return &Hub{
		byKey: make(map[string]map[string]*subscriber),
		all:   make(map[string]*subscriber),
	}
}

// SubscribeKey registers a subscriber for events on one key, and
// returns a cancel function that unregisters it and closes ch.
func (h *Hub) SubscribeKey(key string) (ch <-chan ChangeEvent, cancel func()) {
	sub := &subscriber{id: uuid.NewString(), key: key, ch: make(chan ChangeEvent, subscriberQueueSize)}
	h.mu.Lock()
	m := h.byKey[key]
	if m == nil {
		m = make(map[string]*subscriber)
		h.byKey[key] = m
	}
	m[sub.id] = sub
	h.mu.Unlock()
	return sub.ch, func() { h.remove(sub) }
}

// SubscribeAll registers a subscriber for every committed change,
// backing the HTTP boundary's single global /events stream.
func (h *Hub) SubscribeAll() (ch <-chan ChangeEvent, cancel func()) {
	sub := &subscriber{id: uuid.NewString(), ch: make(chan ChangeEvent, subscriberQueueSize)}
	h.mu.Lock()
	h.all[sub.id] = sub
	h.mu.Unlock()
	return sub.ch, func() { h.remove(sub) }
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[sub.id]; ok {
		delete(h.all, sub.id)
		closeQuietly(sub.ch)
		return
	}
	if m := h.byKey[sub.key]; m != nil {
		if _, ok := m[sub.id]; ok {
			delete(m, sub.id)
			if len(m) == 0 {
				delete(h.byKey, sub.key)
			}
			closeQuietly(sub.ch)
		}
	}
}

func closeQuietly(ch chan ChangeEvent) {
	defer func() { recover() }()
	close(ch)
}

// Publish delivers events in order, one at a time, to every interested
// subscriber. Never blocks the caller: a subscriber whose queue is
// full is dropped and its stream closed instead of stalling the commit
// path (spec.md §5: "the hub does not block the commit path").
func (h *Hub) Publish(events []ChangeEvent) {
	for _, ev := range events {
		h.publishOne(ev)
	}
}

func (h *Hub) publishOne(ev ChangeEvent) {
	h.mu.Lock()
	var targets []*subscriber
	if m := h.byKey[ev.Key]; m != nil {
		for _, sub := range m {
			targets = append(targets, sub)
		}
	}
	for _, sub := range h.all {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- ev:
		default:
			h.remove(sub)
		}
	}
}
