package engine

import "sync"

// Source is a current-value stream: Current reads synchronously, and
// Subscribe replays the current value before every later emission.
// Cells and selectors are sources.
type Source[T any] interface {
	Current() T
	Subscribe(observer func(T)) *Subscription
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Cancel stops delivery to the observer. Safe to call more than once
// and on a nil subscription.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type observerEntry[T any] struct {
	id uint64
	fn func(T)
}

// broadcaster keeps observers in subscription order.
type broadcaster[T any] struct {
	mu      sync.Mutex
	next    uint64
	entries []observerEntry[T]
	closed  bool
}

// add registers fn. Returns false once the broadcaster is closed.
func (b *broadcaster[T]) add(fn func(T)) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, false
	}
	b.next++
	b.entries = append(b.entries, observerEntry[T]{id: b.next, fn: fn})
	return b.next, true
}

func (b *broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			return
		}
	}
}

func (b *broadcaster[T]) snapshot() []func(T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fns := make([]func(T), len(b.entries))
	for i, e := range b.entries {
		fns[i] = e.fn
	}
	return fns
}

func (b *broadcaster[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.entries = nil
}
