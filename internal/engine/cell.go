package engine

import "sync"

// Key names a cell of type T. Keys are compared by name, so two keys
// with the same name address the same cell.
type Key[T any] struct {
	name string
}

// NewKey creates a key for a cell holding T.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name.
func (k Key[T]) Name() string { return k.name }

func (k Key[T]) String() string { return k.name }

// Cell holds the current value of one state slice.
//
// Consecutive equal values are coalesced: observers are notified only
// when a reducer produces a value that differs from the previous one.
// Values must be treated as immutable once sent.
//
// Only reducers bound through RegisterReducer change a cell. Reads
// (Current) are safe from any goroutine. Observers run synchronously on
// the dispatching goroutine and must not subscribe to the same cell
// from inside the callback. An observer may call Store.Dispatch; the
// action is queued and applied once the current action has reached every
// reducer.
type Cell[T any] struct {
	key   string
	equal func(a, b T) bool

	// notifyMu serializes emissions and subscription replays so an
	// observer never sees a live value before its replay.
	notifyMu sync.Mutex

	mu    sync.RWMutex
	value T

	observers broadcaster[T]
}

func newCell[T any](key string, initial T, equal func(a, b T) bool) *Cell[T] {
	return &Cell[T]{key: key, value: initial, equal: equal}
}

// Key returns the name the cell is registered under.
func (c *Cell[T]) Key() string { return c.key }

// Current returns the current value.
func (c *Cell[T]) Current() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Subscribe delivers the current value to observer immediately, then
// every later distinct value until the subscription is cancelled or the
// store is disposed.
func (c *Cell[T]) Subscribe(observer func(T)) *Subscription {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	id, live := c.observers.add(observer)
	observer(c.Current())

	if !live {
		return newSubscription(nil)
	}
	return newSubscription(func() { c.observers.remove(id) })
}

// send stores v and notifies observers unless v equals the current value.
// Reports whether an emission happened.
func (c *Cell[T]) send(v T) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.equal(c.value, v) {
		c.mu.Unlock()
		return false
	}
	c.value = v
	c.mu.Unlock()

	for _, fn := range c.observers.snapshot() {
		fn(v)
	}
	return true
}

func (c *Cell[T]) name() string { return c.key }

func (c *Cell[T]) current() any { return c.Current() }

func (c *Cell[T]) observerCount() int { return c.observers.len() }

func (c *Cell[T]) close() { c.observers.close() }

// cellHandle is the type-erased view the store keeps of each cell.
type cellHandle interface {
	name() string
	current() any
	observerCount() int
	close()
}
