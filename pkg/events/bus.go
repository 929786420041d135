// Package events carries viewer notifications between components that do
// not reference each other: the toolbar publishes scale and rotation
// requests, the viewer publishes render results and errors.
package events

import "sync"

// All subscribes a handler to every event regardless of name.
const All = "*"

// Event is anything with a name handlers can subscribe to.
type Event interface {
	Name() string
}

type Handler func(Event)

type subscription struct {
	name    string
	handler Handler
	active  bool
}

// Bus delivers events to subscribers in publication order. Events published
// while a delivery is in progress, including from inside a handler, are
// queued and delivered after it instead of recursively.
type Bus struct {
	mu          sync.Mutex
	subs        []*subscription
	queue       []Event
	dispatching bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for events named name (or All). The returned
// function removes the subscription; it is safe to call more than once.
func (b *Bus) Subscribe(name string, handler Handler) (unsubscribe func()) {
	sub := &subscription{name: name, handler: handler, active: true}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !sub.active {
			return
		}
		sub.active = false
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
	}
}

// Publish queues e and, unless another call is already draining the queue,
// delivers queued events until none remain.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.queue = append(b.queue, e)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]

		var targets []*subscription
		for _, s := range b.subs {
			if s.name == All || s.name == next.Name() {
				targets = append(targets, s)
			}
		}
		b.mu.Unlock()

		for _, s := range targets {
			b.deliver(s, next)
		}

		b.mu.Lock()
	}
	b.queue = nil
	b.dispatching = false
	b.mu.Unlock()
}

func (b *Bus) deliver(s *subscription, e Event) {
	b.mu.Lock()
	active := s.active
	b.mu.Unlock()
	if active {
		s.handler(e)
	}
}
