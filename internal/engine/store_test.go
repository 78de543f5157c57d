package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/testutil"
)

func TestStore_IncrementThenDecrement(t *testing.T) {
	s, cell := newCounterStore(t)
	rec := testutil.NewRecorder[int]()
	cell.Subscribe(rec.Record)

	require.NoError(t, s.Dispatch(increment{}))
	assert.Equal(t, 1, cell.Current(), "reducer applied before Dispatch returns")
	require.NoError(t, s.Dispatch(decrement{}))

	assert.Equal(t, []int{0, 1, 0}, rec.Values())
}

func TestStore_UnrelatedActionDoesNotEmit(t *testing.T) {
	s, cell := newCounterStore(t)
	rec := testutil.NewRecorder[int]()
	cell.Subscribe(rec.Record)

	require.NoError(t, s.Dispatch(increment{}))
	require.NoError(t, s.Dispatch(ping{}))

	assert.Equal(t, []int{0, 1}, rec.Values())
}

func TestStore_EmptyActionsIgnored(t *testing.T) {
	key := NewKey[bool]("sawEmpty")
	s := newTestStore()
	cell := DefineCell(s, key, false)
	RegisterReducer(s, key, func(_ bool, a action.Action) bool {
		return a.Type() == action.EmptyType
	})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Dispose()

	trace := testutil.NewRecorder[Envelope]()
	// Observers are attached at Initialize; a late bus subscriber works too.
	s.bus.subscribe("trace", trace.Record)

	require.NoError(t, s.Dispatch(action.Empty))
	require.NoError(t, s.Dispatch(ping{}))

	assert.False(t, cell.Current())
	assert.Equal(t, []action.Type{"test/ping"}, traceTypes(trace))
}

func TestStore_DispatchBeforeInitialize(t *testing.T) {
	s := newTestStore()
	cell := DefineCell(s, counterKey, 0)
	RegisterReducer(s, counterKey, reduceCounter)

	err := s.Dispatch(increment{})
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, 0, cell.Current(), "action dropped, not queued")
	assert.Equal(t, Wired, s.State())

	require.NoError(t, s.Initialize(context.Background()))
	defer s.Dispose()

	assert.Equal(t, 0, cell.Current(), "dropped action not replayed on initialize")
	require.NoError(t, s.Dispatch(increment{}))
	assert.Equal(t, 1, cell.Current())
}

func TestStore_Lifecycle(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, Constructed, s.State())

	DefineCell(s, counterKey, 0)
	assert.Equal(t, Wired, s.State())

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, Initialized, s.State())
	assert.ErrorIs(t, s.Initialize(context.Background()), ErrAlreadyInitialized)

	s.Dispose()
	assert.Equal(t, Disposed, s.State())
	s.Dispose() // idempotent

	assert.ErrorIs(t, s.Initialize(context.Background()), ErrDisposed)
	assert.ErrorIs(t, s.Dispatch(increment{}), ErrDisposed)
}

func TestStore_DisposeBeforeInitialize(t *testing.T) {
	s := newTestStore()
	DefineCell(s, counterKey, 0)

	s.Dispose()

	assert.Equal(t, Disposed, s.State())
	assert.ErrorIs(t, s.Dispatch(increment{}), ErrDisposed)
}

func TestStore_DisposeReleasesSubscriptions(t *testing.T) {
	s, cell := newCounterStore(t)
	rec := testutil.NewRecorder[int]()
	cell.Subscribe(rec.Record)
	require.Equal(t, 1, cell.observerCount())

	s.Dispose()

	assert.Equal(t, 0, cell.observerCount())
	assert.Equal(t, 0, s.bus.len())
}

func TestStore_NilAction(t *testing.T) {
	s, _ := newCounterStore(t)
	assert.ErrorIs(t, s.Dispatch(nil), ErrNilAction)
}

func TestStore_WiringErrors(t *testing.T) {
	tests := []struct {
		name  string
		wire  func(s *Store)
		isErr error
	}{
		{
			name: "duplicate cell",
			wire: func(s *Store) {
				DefineCell(s, counterKey, 0)
				DefineCell(s, counterKey, 1)
			},
			isErr: ErrDuplicateCell,
		},
		{
			name: "reducer for unknown cell",
			wire: func(s *Store) {
				RegisterReducer(s, counterKey, reduceCounter)
			},
			isErr: ErrUnknownCell,
		},
		{
			name: "reducer with mismatched type",
			wire: func(s *Store) {
				DefineCell(s, counterKey, 0)
				RegisterReducer(s, NewKey[string]("counter"), func(s string, _ action.Action) string { return s })
			},
			isErr: ErrCellType,
		},
		{
			name: "zero effect",
			wire: func(s *Store) {
				s.RegisterEffects(Effect{})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			tt.wire(s)

			err := s.Initialize(context.Background())
			require.Error(t, err)
			assert.True(t, IsWiringError(err))
			if tt.isErr != nil {
				assert.ErrorIs(t, err, tt.isErr)
			}
			assert.NotEqual(t, Initialized, s.State())
		})
	}
}

func TestStore_WiringAfterInitialize(t *testing.T) {
	s, _ := newCounterStore(t)

	DefineCell(s, NewKey[int]("late"), 0)
	RegisterReducer(s, counterKey, reduceCounter)
	s.RegisterEffects(CreateEffect(ping{}.Type(), func(context.Context, *Store, ping) (action.Action, error) {
		return nil, nil
	}))

	err := s.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStarted)
	assert.Equal(t, []string{"counter"}, s.Cells())
}

func TestStore_ReducersRunInRegistrationOrder(t *testing.T) {
	a := NewKey[int]("a")
	b := NewKey[int]("b")

	var order []string
	s := newTestStore()
	DefineCell(s, a, 0)
	DefineCell(s, b, 0)
	RegisterReducer(s, b, func(st int, _ action.Action) int { order = append(order, "b"); return st })
	RegisterReducer(s, a, func(st int, _ action.Action) int { order = append(order, "a"); return st })
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Dispose()

	require.NoError(t, s.Dispatch(ping{}))
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestStore_ReducerPanicIsFatal(t *testing.T) {
	s, cell := newCounterStore(t)

	assert.PanicsWithValue(t, "reducer exploded", func() {
		_ = s.Dispatch(boom{})
	})
	assert.Equal(t, 0, cell.Current())

	// The bus lock was released on the way out.
	require.NoError(t, s.Dispatch(increment{}))
	assert.Equal(t, 1, cell.Current())
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	s, cell := newCounterStore(t)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Dispatch(increment{}))
		}()
	}
	wg.Wait()

	assert.Equal(t, n, cell.Current())
	assert.Equal(t, int64(n), s.Clock().Current())
}

func TestStore_DispatchFromSubscriber(t *testing.T) {
	trace := testutil.NewRecorder[Envelope]()
	s, cell := newCounterStore(t, WithObserver(ObserverFunc(trace.Record)))

	var values []int
	var nestedErr error
	cell.Subscribe(func(v int) {
		values = append(values, v)
		if v == 1 {
			nestedErr = s.Dispatch(increment{})
		}
	})

	done := make(chan error, 1)
	go func() { done <- s.Dispatch(increment{}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Dispatch from a cell subscriber did not return; cell=%d", cell.Current())
	}

	require.NoError(t, nestedErr)
	assert.Equal(t, 2, cell.Current(), "nested action applied before the outer Dispatch returns")
	assert.Equal(t, []int{0, 1, 2}, values)

	got := trace.Values()
	require.Len(t, got, 2)
	assert.Equal(t, Envelope{Seq: 1, Flow: "flow-1", Action: increment{}}, got[0])
	assert.Equal(t, Envelope{Seq: 2, Flow: "flow-2", Action: increment{}}, got[1])
}

func TestStore_DispatchFromObserverQueuesBehindCurrent(t *testing.T) {
	var seen []int
	var cell *Cell[int]
	var s *Store
	s = newTestStore(WithObserver(ObserverFunc(func(env Envelope) {
		seen = append(seen, cell.Current())
		if _, ok := env.Action.(set); ok {
			assert.NoError(t, s.Dispatch(increment{}))
		}
	})))
	cell = DefineCell(s, counterKey, 0)
	RegisterReducer(s, counterKey, reduceCounter)
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Dispose()

	require.NoError(t, s.Dispatch(set{Value: 10}))

	// set reached the reducer before the queued increment was delivered.
	assert.Equal(t, []int{0, 10}, seen)
	assert.Equal(t, 11, cell.Current())

	// The bus is usable afterwards.
	require.NoError(t, s.Dispatch(decrement{}))
	assert.Equal(t, 10, cell.Current())
}

func TestStore_ObserverSeesEnvelopesInOrder(t *testing.T) {
	trace := testutil.NewRecorder[Envelope]()
	s, _ := newCounterStore(t, WithObserver(ObserverFunc(trace.Record)))

	require.NoError(t, s.Dispatch(increment{}))
	require.NoError(t, s.Dispatch(decrement{}))

	got := trace.Values()
	require.Len(t, got, 2)
	assert.Equal(t, Envelope{Seq: 1, Flow: "flow-1", Action: increment{}}, got[0])
	assert.Equal(t, Envelope{Seq: 2, Flow: "flow-2", Action: decrement{}}, got[1])
}

func TestStore_ObserverRunsBeforeReducers(t *testing.T) {
	var seen []int
	var cell *Cell[int]
	s := newTestStore(WithObserver(ObserverFunc(func(Envelope) {
		seen = append(seen, cell.Current())
	})))
	cell = DefineCell(s, counterKey, 0)
	RegisterReducer(s, counterKey, reduceCounter)
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Dispose()

	require.NoError(t, s.Dispatch(increment{}))
	assert.Equal(t, []int{0}, seen)
}

func TestStore_SnapshotAndLookup(t *testing.T) {
	s, _ := newCounterStore(t)
	require.NoError(t, s.Dispatch(set{Value: 7}))

	assert.Equal(t, map[string]any{"counter": 7}, s.Snapshot())

	c, err := CellOf(s, counterKey)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Current())
	assert.Same(t, c, MustCell(s, counterKey))

	_, err = CellOf(s, NewKey[int]("missing"))
	assert.ErrorIs(t, err, ErrUnknownCell)
	_, err = CellOf(s, NewKey[string]("counter"))
	assert.ErrorIs(t, err, ErrCellType)
	assert.Panics(t, func() { MustCell(s, NewKey[int]("missing")) })
}

func TestStore_SettleWithoutEffects(t *testing.T) {
	s, _ := newCounterStore(t)
	require.NoError(t, s.Dispatch(increment{}))
	settle(t, s)
	assert.Equal(t, 0, s.Pending())
}

func TestLifecycle_String(t *testing.T) {
	assert.Equal(t, "constructed", Constructed.String())
	assert.Equal(t, "wired", Wired.String())
	assert.Equal(t, "initialized", Initialized.String())
	assert.Equal(t, "disposed", Disposed.String())
	assert.Equal(t, "lifecycle(9)", Lifecycle(9).String())
}
