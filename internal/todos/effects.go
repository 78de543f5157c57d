package todos

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/engine"
)

// Effects returns the effects that keep src in step with the store.
//
// Loading and adding emit a follow-up with the Source's answer. Toggling
// and removal persist the already-reduced state and emit nothing on
// success. Every failure surfaces as action.Failed.
//
// A save that finishes after the todo was removed from the store is
// undone, so a slow add or toggle cannot bring a removed todo back.
func Effects(src Source) []engine.Effect {
	return []engine.Effect{
		engine.CreateEffect(LoadTodosType, func(ctx context.Context, _ *engine.Store, _ LoadTodos) (action.Action, error) {
			todos, err := src.FetchTodos(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch todos: %w", err)
			}
			return TodosLoaded{Todos: todos}, nil
		}).Named("todos.load"),

		engine.CreateEffect(AddTodoType, func(ctx context.Context, s *engine.Store, a AddTodo) (action.Action, error) {
			stored, kept, err := persist(ctx, s, src, a.Todo)
			if err != nil || !kept {
				return nil, err
			}
			return TodoAdded{Todo: stored}, nil
		}).Named("todos.add"),

		engine.CreateEffect(ToggleTodoType, func(ctx context.Context, s *engine.Store, a ToggleTodo) (action.Action, error) {
			t, ok := engine.MustCell(s, TodosKey).Current()[a.ID]
			if !ok {
				return nil, nil
			}
			stored, err := src.GetTodo(ctx, a.ID)
			if errors.Is(err, ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("read todo: %w", err)
			}
			stored.Completed = t.Completed
			_, _, err = persist(ctx, s, src, stored)
			return nil, err
		}).Named("todos.toggle"),

		engine.CreateEffect(RemoveTodoType, func(ctx context.Context, _ *engine.Store, a RemoveTodo) (action.Action, error) {
			if err := src.DeleteTodo(ctx, a.ID); err != nil {
				return nil, fmt.Errorf("remove todo: %w", err)
			}
			return nil, nil
		}).Named("todos.remove"),
	}
}

// persist saves t, then deletes it again if the todos cell no longer
// holds it. The RemoveTodo reducer runs before the remove effect starts,
// so either the cell check sees the removal or the remove effect's delete
// follows this save. Reports whether the todo was kept.
func persist(ctx context.Context, s *engine.Store, src Source, t Todo) (Todo, bool, error) {
	stored, err := src.SaveTodo(ctx, t)
	if err != nil {
		return Todo{}, false, fmt.Errorf("persist todo: %w", err)
	}
	if _, ok := engine.MustCell(s, TodosKey).Current()[t.ID]; ok {
		return stored, true, nil
	}
	if err := src.DeleteTodo(ctx, t.ID); err != nil {
		return Todo{}, false, fmt.Errorf("remove todo: %w", err)
	}
	return Todo{}, false, nil
}
