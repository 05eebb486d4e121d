package events

import (
	"log"
	"sync"
)

// EventPermissionError is the only event the core publishes. Surrounding
// code may subscribe to surface denied store operations centrally.
const EventPermissionError = "permission-error"

type subscriber struct {
	id int64
	fn func(payload any)
}

// Bus is a process-wide publish/subscribe registry keyed by event name.
// It is an explicit, injectable object so tests can substitute an
// isolated instance.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscriber
	next int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscription identifies a registered listener.
type Subscription struct {
	bus   *Bus
	event string
	id    int64
}

// Subscribe registers fn for the named event. Listeners are invoked in
// registration order.
func (b *Bus) Subscribe(event string, fn func(payload any)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[event] = append(b.subs[event], subscriber{id: b.next, fn: fn})
	return &Subscription{bus: b, event: event, id: b.next}
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	list := s.bus.subs[s.event]
	for i, sub := range list {
		if sub.id == s.id {
			s.bus.subs[s.event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Publish invokes every currently registered listener for the event
// synchronously, in registration order. A listener that panics is
// recovered and logged; it never blocks delivery to the others or
// propagates to the publisher.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	list := make([]subscriber, len(b.subs[event]))
	copy(list, b.subs[event])
	b.mu.RUnlock()

	for _, sub := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("event listener panic event=%s err=%v", event, r)
				}
			}()
			sub.fn(payload)
		}()
	}
}
