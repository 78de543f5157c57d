// Package engine implements the rxstore action pipeline.
//
// A Store owns a single action bus. Everything else attaches to it:
//
//	Dispatch(a) -> bus -> observers (trace hooks)
//	                   -> reducers, in registration order (update cells)
//	                   -> effect stage (one goroutine per matching effect)
//	                          |
//	                          +-> follow-up queue -> run loop -> bus
//
// # Delivery
//
// The bus delivers synchronously and in order. Concurrent callers of
// Dispatch are serialized, and every reducer bound to a cell has been
// applied when Dispatch returns. A Dispatch made while an action is being
// delivered, for example from a cell subscriber, is queued behind it and
// delivered before the outer Dispatch returns. The Empty sentinel is
// dropped before delivery.
//
// # Cells
//
// A Cell holds the current value of one state slice and only notifies
// observers when a reducer produces a value that differs from the
// previous one. Subscribing replays the current value first. Cells are
// registered under typed keys (Key[T]) when the store is built; reducers
// refer to the key, never to the cell's location in some struct.
//
// # Effects
//
// Effects run concurrently with each other and with the dispatching
// caller. Each invocation emits at most one follow-up action, which
// re-enters through the follow-up queue in completion order. Handler
// errors and panics become action.Failed and never stop the pipeline.
//
// Follow-ups inherit the flow token of the action that triggered them, so
// a root dispatch and its whole effect cascade share one token. The
// per-flow step quota (WithMaxSteps) bounds runaway feedback loops.
//
// # Lifecycle
//
//	Constructed -> Wired -> Initialized -> Disposed
//
// Transitions are one-directional. Dispatch before Initialize returns
// ErrNotInitialized and the action is dropped.
package engine
