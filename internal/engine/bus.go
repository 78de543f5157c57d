package engine

import (
	"sync"

	"github.com/roach88/rxstore/internal/action"
)

// Envelope is one delivered action with its delivery metadata.
type Envelope struct {
	Seq    int64  // logical clock value, strictly increasing in delivery order
	Flow   string // flow token shared by a root dispatch and its follow-ups
	Action action.Action
}

// Observer receives every delivered action before any reducer runs.
// Observers run synchronously on the delivering goroutine. An action
// dispatched from an observer is queued behind the current one.
type Observer interface {
	OnAction(env Envelope)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(env Envelope)

// OnAction implements Observer.
func (f ObserverFunc) OnAction(env Envelope) { f(env) }

type busSubscriber struct {
	id      uint64
	name    string
	deliver func(env Envelope)
}

type queued struct {
	flow   string
	action action.Action
}

// bus is the synchronous multicast action channel.
//
// publish appends to a queue and the goroutine holding deliverMu drains
// it, so each envelope reaches every subscriber before the next one
// starts. A publish made while another delivery is in progress, including
// one made from inside a subscriber, is handed to that delivery and
// drained before it returns. Subscribers added later only see later
// envelopes.
type bus struct {
	clock     *Clock
	delivered func(env Envelope)

	deliverMu sync.Mutex // held by the draining goroutine

	queueMu sync.Mutex
	queue   []queued

	subMu  sync.RWMutex
	nextID uint64
	subs   []busSubscriber
}

func newBus(clock *Clock, delivered func(env Envelope)) *bus {
	if delivered == nil {
		delivered = func(Envelope) {}
	}
	return &bus{clock: clock, delivered: delivered}
}

// subscribe appends a subscriber. Returns a function that removes it.
func (b *bus) subscribe(name string, deliver func(env Envelope)) func() {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, busSubscriber{id: id, name: name, deliver: deliver})

	return func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// publish queues a for delivery to every current subscriber, in
// subscription order. The Empty sentinel is filtered out and reported as
// not queued.
//
// When no delivery is in progress the caller drains the queue itself and
// publish returns after a, and anything queued behind it, has been
// delivered. Otherwise a is left to the goroutine already delivering.
func (b *bus) publish(flow string, a action.Action) bool {
	if action.IsEmpty(a) {
		return false
	}

	b.queueMu.Lock()
	b.queue = append(b.queue, queued{flow: flow, action: a})
	b.queueMu.Unlock()

	for b.deliverMu.TryLock() {
		b.drain()
		// Anything queued after drain's last look was queued while we held
		// deliverMu, so its publisher left it to us.
		if b.pending() == 0 {
			return true
		}
	}
	return true
}

// drain delivers queued actions until the queue is empty. Called with
// deliverMu held; releases it. A subscriber panic drops the rest of the
// queue and propagates.
func (b *bus) drain() {
	defer b.deliverMu.Unlock()
	completed := false
	defer func() {
		if !completed {
			b.queueMu.Lock()
			b.queue = nil
			b.queueMu.Unlock()
		}
	}()

	for {
		b.queueMu.Lock()
		if len(b.queue) == 0 {
			b.queueMu.Unlock()
			completed = true
			return
		}
		next := b.queue[0]
		b.queue[0] = queued{}
		b.queue = b.queue[1:]
		b.queueMu.Unlock()

		b.deliver(Envelope{Seq: b.clock.Next(), Flow: next.flow, Action: next.action})
	}
}

func (b *bus) deliver(env Envelope) {
	b.subMu.RLock()
	subs := make([]busSubscriber, len(b.subs))
	copy(subs, b.subs)
	b.subMu.RUnlock()

	for _, s := range subs {
		s.deliver(env)
	}
	b.delivered(env)
}

func (b *bus) pending() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

func (b *bus) len() int {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	return len(b.subs)
}
