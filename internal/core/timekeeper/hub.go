package timekeeper

import (
	"sync"
	"sync/atomic"
)

// Subscription is one observer's bounded event queue. When the queue is full
// the oldest unread event is discarded to make room.
type Subscription struct {
	ch      chan Event
	hub     *hub
	dropped atomic.Uint64
}

// C returns the event channel. It is closed when the subscription is closed
// or the TimeKeeper stops running.
func (sub *Subscription) C() <-chan Event {
	return sub.ch
}

// Close detaches the subscription.
func (sub *Subscription) Close() {
	sub.hub.remove(sub)
}

// Dropped returns how many events were discarded for this subscriber.
func (sub *Subscription) Dropped() uint64 {
	return sub.dropped.Load()
}

type hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[*Subscription]struct{})}
}

func (hub *hub) subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &Subscription{ch: make(chan Event, buffer), hub: hub}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		close(sub.ch)
		return sub
	}
	hub.subs[sub] = struct{}{}
	return sub
}

func (hub *hub) remove(sub *Subscription) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.subs[sub]; !ok {
		return
	}
	delete(hub.subs, sub)
	close(sub.ch)
}

func (hub *hub) close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.closed = true
	for sub := range hub.subs {
		close(sub.ch)
	}
	hub.subs = make(map[*Subscription]struct{})
}

// emit never blocks: the publisher is the only sender, so after discarding
// one queued event the next send has room.
func (hub *hub) emit(event Event) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for sub := range hub.subs {
		for {
			select {
			case sub.ch <- event:
			default:
				select {
				case <-sub.ch:
					sub.dropped.Add(1)
				default:
				}
				continue
			}
			break
		}
	}
}
