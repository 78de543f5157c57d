package engine

import (
	"sync"

	"github.com/roach88/rxstore/internal/action"
)

// followUp is an action emitted by an effect, waiting to be re-dispatched.
type followUp struct {
	Flow   string
	Effect string
	Action action.Action
}

// followUpQueue is a thread-safe FIFO of effect results.
//
// Effect goroutines enqueue as they complete, so dequeue order is
// completion order. The queue is unbounded: an effect never blocks on a
// slow bus.
//
// A buffered signal channel lets the run loop wait on the queue and on
// context cancellation in the same select.
type followUpQueue struct {
	mu     sync.Mutex
	items  []followUp
	closed bool
	signal chan struct{} // buffered, size 1
}

func newFollowUpQueue() *followUpQueue {
	return &followUpQueue{
		items:  make([]followUp, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends f. Returns false if the queue is closed.
func (q *followUpQueue) Enqueue(f followUp) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, f)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (q *followUpQueue) TryDequeue() (followUp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return followUp{}, false
	}

	f := q.items[0]
	// Clear the slot so the action can be collected.
	q.items[0] = followUp{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return f, true
}

// Wait returns a channel that fires when items may be available.
// It is closed when the queue closes.
func (q *followUpQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *followUpQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *followUpQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further items and wakes waiters.
// Items already queued are returned so the caller can account for them.
func (q *followUpQueue) Close() []followUp {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.signal)

	rest := q.items
	q.items = nil
	return rest
}
