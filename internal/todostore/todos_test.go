package todostore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxstore/internal/engine"
	"github.com/roach88/rxstore/internal/testutil"
	"github.com/roach88/rxstore/internal/todos"
)

var (
	todoA = todos.Todo{UserID: 1, ID: 123, Title: "Todo A"}
	todoB = todos.Todo{UserID: 2, ID: 444, Title: "Todo B"}
)

func TestFetchTodos_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, []todos.Todo{todoB, todoA}))

	got, err := s.FetchTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, []todos.Todo{todoA, todoB}, got)
}

func TestSaveTodo_Upserts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTodo(ctx, todoA)
	require.NoError(t, err)

	done := todoA
	done.Completed = true
	stored, err := s.SaveTodo(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, done, stored)

	got, err := s.GetTodo(ctx, 123)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	all, err := s.FetchTodos(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveTodo_NormalizesTitle(t *testing.T) {
	s := createTestStore(t)

	// "e" followed by a combining acute accent.
	decomposed := todos.Todo{UserID: 1, ID: 7, Title: "  cafe\u0301  "}
	stored, err := s.SaveTodo(context.Background(), decomposed)
	require.NoError(t, err)

	assert.Equal(t, "caf\u00e9", stored.Title)
	got, err := s.GetTodo(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", got.Title)
}

func TestSaveTodo_Invalid(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTodo(ctx, todos.Todo{ID: 0, Title: "x"})
	assert.ErrorContains(t, err, "invalid id")

	_, err = s.SaveTodo(ctx, todos.Todo{ID: 1, Title: "   "})
	assert.ErrorContains(t, err, "empty title")
}

func TestGetTodo_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetTodo(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, todos.ErrNotFound, "effects match the todos sentinel")
}

func TestDeleteTodo(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, []todos.Todo{todoA, todoB}))

	require.NoError(t, s.DeleteTodo(ctx, 123))
	require.NoError(t, s.DeleteTodo(ctx, 123), "missing todo is not an error")

	got, err := s.FetchTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, []todos.Todo{todoB}, got)
}

func TestNextID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	next, err := s.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, s.Seed(ctx, []todos.Todo{todoB, todoA}))
	next, err = s.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 445, next)
}

func TestStore_BacksTodosDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, db.Seed(ctx, []todos.Todo{todoA}))

	s := engine.New(engine.WithLogger(testutil.DiscardLogger()))
	cells := todos.Wire(s, db)
	require.NoError(t, s.Initialize(ctx))
	defer s.Dispose()

	forUser2 := engine.Select(s, todos.TodosForUser(2))
	defer forUser2.Close()

	require.NoError(t, s.Dispatch(todos.LoadTodos{}))
	require.NoError(t, s.Settle(ctx))
	assert.Equal(t, todos.State{123: todoA}, cells.Todos.Current())
	assert.Equal(t, []todos.Todo{}, forUser2.Current())

	require.NoError(t, s.Dispatch(todos.AddTodo{Todo: todoB}))
	require.NoError(t, s.Settle(ctx))
	assert.Equal(t, []todos.Todo{todoB}, forUser2.Current())

	stored, err := db.FetchTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, []todos.Todo{todoA, todoB}, stored)
	assert.Empty(t, cells.Error.Current())
}
