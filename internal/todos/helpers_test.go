package todos

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rxstore/internal/engine"
	"github.com/roach88/rxstore/internal/testutil"
)

var (
	mockTodo  = Todo{UserID: 1, ID: 123, Title: "Todo A"}
	mockTodo2 = Todo{UserID: 2, ID: 444, Title: "Todo B"}
)

// memSource is an in-memory Source.
type memSource struct {
	mu      sync.Mutex
	todos   map[int]Todo
	err     error
	saved   []Todo
	deleted []int
}

func newMemSource(todos ...Todo) *memSource {
	m := &memSource{todos: make(map[int]Todo)}
	for _, t := range todos {
		m.todos[t.ID] = t
	}
	return m
}

func (m *memSource) FetchTodos(context.Context) ([]Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Todo, 0, len(m.todos))
	for _, t := range m.todos {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Todo) int { return a.ID - b.ID })
	return out, nil
}

func (m *memSource) GetTodo(_ context.Context, id int) (Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Todo{}, m.err
	}
	t, ok := m.todos[id]
	if !ok {
		return Todo{}, fmt.Errorf("get todo %d: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *memSource) SaveTodo(_ context.Context, t Todo) (Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Todo{}, m.err
	}
	m.todos[t.ID] = t
	m.saved = append(m.saved, t)
	return t, nil
}

func (m *memSource) DeleteTodo(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.todos, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// slowSource delays every save, so a removal can overtake it.
type slowSource struct {
	*memSource
	delay time.Duration
}

func (s *slowSource) SaveTodo(ctx context.Context, t Todo) (Todo, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return Todo{}, ctx.Err()
	}
	return s.memSource.SaveTodo(ctx, t)
}

func (m *memSource) savedTodos() []Todo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.saved)
}

func newStore(t *testing.T, src Source) (*engine.Store, Cells) {
	t.Helper()

	s := engine.New(
		engine.WithLogger(testutil.DiscardLogger()),
		engine.WithName("todos"),
		engine.WithFlowGenerator(engine.NewSequenceGenerator("flow")),
	)
	cells := Wire(s, src)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(s.Dispose)
	return s, cells
}

func settle(t *testing.T, s *engine.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
}
