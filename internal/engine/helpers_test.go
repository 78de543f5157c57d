package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/testutil"
)

type ping struct{}

func (ping) Type() action.Type { return "test/ping" }

type increment struct{}

func (increment) Type() action.Type { return "test/increment" }

type decrement struct{}

func (decrement) Type() action.Type { return "test/decrement" }

type set struct{ Value int }

func (set) Type() action.Type { return "test/set" }

type boom struct{}

func (boom) Type() action.Type { return "test/boom" }

var counterKey = NewKey[int]("counter")

func reduceCounter(state int, a action.Action) int {
	switch a := a.(type) {
	case increment:
		return state + 1
	case decrement:
		return state - 1
	case set:
		return a.Value
	case boom:
		panic("reducer exploded")
	default:
		return state
	}
}

// newTestStore builds an unwired store with quiet logs and predictable
// flow tokens.
func newTestStore(opts ...Option) *Store {
	base := []Option{
		WithLogger(testutil.DiscardLogger()),
		WithFlowGenerator(NewSequenceGenerator("flow")),
	}
	return New(append(base, opts...)...)
}

// newCounterStore returns an initialized store with a counter cell.
func newCounterStore(t *testing.T, opts ...Option) (*Store, *Cell[int]) {
	t.Helper()

	s := newTestStore(opts...)
	cell := DefineCell(s, counterKey, 0)
	RegisterReducer(s, counterKey, reduceCounter)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(s.Dispose)
	return s, cell
}

func settle(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
}

// traceTypes returns the action types an observer recorded, in order.
func traceTypes(rec *testutil.Recorder[Envelope]) []action.Type {
	var types []action.Type
	for _, env := range rec.Values() {
		types = append(types, env.Action.Type())
	}
	return types
}
