// Package badge broadcasts the cart item count to views that show it.
//
// Delivery is fire-and-forget: each listener registered at publish time gets
// the event at most once, and nothing is replayed to listeners that register
// later.
package badge

import (
	"sync"

	"storefront/internal/logging"
)

// Event carries the cart's total item count.
type Event struct {
	Count int
}

// Notifier is an in-process pub/sub of Events. The zero value is not usable;
// call New.
type Notifier struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(Event)
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{subs: make(map[uint64]func(Event))}
}

// Subscribe registers fn for future events. The returned func unsubscribes and
// is safe to call more than once.
func (n *Notifier) Subscribe(fn func(Event)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Listen adapts Subscribe to a channel with the given buffer. When the buffer is
// full the oldest buffered event is discarded so the latest count always gets
// through. cancel unsubscribes and closes the channel.
func (n *Notifier) Listen(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	var mu sync.Mutex
	closed := false

	unsubscribe := n.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		for {
			select {
			case ch <- ev:
				return
			default:
			}
			// Only this func sends, under mu, so the receive below makes room
			// unless the reader already did.
			select {
			case stale := <-ch:
				logging.BadgeDebug("listener full, dropped stale count=%d", stale.Count)
			default:
			}
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber, synchronously and in no
// particular order.
func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	logging.BadgeDebug("publish count=%d to %d listener(s)", ev.Count, len(fns))
	for _, fn := range fns {
		fn(ev)
	}
}

// PublishCount is shorthand for Publish(Event{Count: count}).
func (n *Notifier) PublishCount(count int) {
	n.Publish(Event{Count: count})
}

// Len reports the number of active subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
