// Package broadcast provides the process-wide "data changed" channel.
//
// Any mutation publisher (forms, cache invalidation) announces a change;
// independent list components subscribe to reload. Delivery keeps only the
// latest pending notification per subscriber: there is no buffering beyond
// that and no ordering guarantee beyond "all current subscribers are notified
// after the mutation's cache invalidation step completes".
package broadcast

import "sync"

// Bus is a publish/subscribe broadcast channel.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan struct{})}
}

// Subscribe registers a subscriber. The returned channel receives one value
// per pending notification; a notification published while a previous one is
// still unconsumed is coalesced into it. The cancel function removes the
// subscription.
func (b *Bus) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish notifies every current subscriber. Subscribers that already have a
// pending notification are left as-is; Publish never blocks.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the current number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
