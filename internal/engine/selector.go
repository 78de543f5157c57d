package engine

import "sync"

// Selector is a read-only view derived from other sources.
//
// It recomputes once when created and once for every emission of any
// input. The derived value is not deduplicated: an input change always
// produces an emission, even if the combined result is unchanged.
// Combine functions must be pure and must not dispatch.
type Selector[R any] struct {
	recompute func() R

	notifyMu sync.Mutex

	mu           sync.Mutex
	value        R
	initializing bool
	closed       bool
	inputs       []*Subscription

	observers broadcaster[R]
}

// watcher subscribes to an input and calls changed on each emission.
type watcher func(changed func()) *Subscription

func watch[T any](src Source[T]) watcher {
	return func(changed func()) *Subscription {
		return src.Subscribe(func(T) { changed() })
	}
}

func newSelector[R any](recompute func() R, inputs ...watcher) *Selector[R] {
	s := &Selector[R]{recompute: recompute, initializing: true}

	// Subscribing replays each input; those replays are ignored while
	// initializing and folded into the single computation below.
	subs := make([]*Subscription, 0, len(inputs))
	for _, w := range inputs {
		subs = append(subs, w(s.refresh))
	}

	s.mu.Lock()
	s.inputs = subs
	s.value = recompute()
	s.initializing = false
	s.mu.Unlock()

	return s
}

// CreateSelector derives a view from two sources.
func CreateSelector[A, B, R any](a Source[A], b Source[B], combine func(A, B) R) *Selector[R] {
	return newSelector(func() R {
		return combine(a.Current(), b.Current())
	}, watch(a), watch(b))
}

// CreateSelector3 derives a view from three sources.
func CreateSelector3[A, B, C, R any](a Source[A], b Source[B], c Source[C], combine func(A, B, C) R) *Selector[R] {
	return newSelector(func() R {
		return combine(a.Current(), b.Current(), c.Current())
	}, watch(a), watch(b), watch(c))
}

// Map derives a view from a single source.
func Map[A, R any](a Source[A], fn func(A) R) *Selector[R] {
	return newSelector(func() R {
		return fn(a.Current())
	}, watch(a))
}

// Select applies fn to the store. It exists so selector constructors can
// be written as func(*Store) *Selector[R] and composed.
func Select[R any](s *Store, fn func(*Store) R) R {
	return fn(s)
}

func (s *Selector[R]) refresh() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.initializing || s.closed {
		s.mu.Unlock()
		return
	}
	v := s.recompute()
	s.value = v
	s.mu.Unlock()

	for _, fn := range s.observers.snapshot() {
		fn(v)
	}
}

// Current returns the last computed value.
func (s *Selector[R]) Current() R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Subscribe delivers the current derived value, then every recomputation.
func (s *Selector[R]) Subscribe(observer func(R)) *Subscription {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	id, live := s.observers.add(observer)
	observer(s.Current())

	if !live {
		return newSubscription(nil)
	}
	return newSubscription(func() { s.observers.remove(id) })
}

// Close detaches the selector from its inputs and drops its observers.
func (s *Selector[R]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	inputs := s.inputs
	s.inputs = nil
	s.mu.Unlock()

	for _, sub := range inputs {
		sub.Cancel()
	}
	s.observers.close()
}
