// Package todos is the todo-list store domain: todos keyed by ID, a
// per-user index, effects that persist through a Source, and a selector
// joining the two cells.
package todos

import (
	"context"
	"errors"
	"maps"
	"slices"
)

// ErrNotFound is returned by a Source when a todo ID does not exist.
var ErrNotFound = errors.New("todo not found")

// Todo is one todo item.
type Todo struct {
	UserID    int    `yaml:"user_id" json:"userId"`
	ID        int    `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Completed bool   `yaml:"completed" json:"completed"`
}

// State holds every todo keyed by ID.
type State map[int]Todo

// UserTodoIDs maps a user ID to that user's todo IDs in ascending order.
type UserTodoIDs map[int][]int

// Source is where todos are loaded from and persisted to.
// Implementations must be safe for concurrent use; effects call them from
// their own goroutines.
type Source interface {
	FetchTodos(ctx context.Context) ([]Todo, error)

	// GetTodo returns the stored todo with id, or an error wrapping
	// ErrNotFound.
	GetTodo(ctx context.Context, id int) (Todo, error)

	// SaveTodo inserts or replaces t and returns it as stored.
	SaveTodo(ctx context.Context, t Todo) (Todo, error)

	DeleteTodo(ctx context.Context, id int) error
}

func statesEqual(a, b State) bool {
	return maps.Equal(a, b)
}

func userIDsEqual(a, b UserTodoIDs) bool {
	return maps.EqualFunc(a, b, func(x, y []int) bool { return slices.Equal(x, y) })
}

// with returns a copy of s with t upserted.
func (s State) with(t Todo) State {
	out := maps.Clone(s)
	if out == nil {
		out = State{}
	}
	out[t.ID] = t
	return out
}

// without returns a copy of s without id.
func (s State) without(id int) State {
	out := maps.Clone(s)
	delete(out, id)
	return out
}

// with returns a copy of u with id listed under user.
func (u UserTodoIDs) with(user, id int) UserTodoIDs {
	ids := u[user]
	i, found := slices.BinarySearch(ids, id)
	if found {
		return u
	}
	out := maps.Clone(u)
	if out == nil {
		out = UserTodoIDs{}
	}
	out[user] = slices.Insert(slices.Clone(ids), i, id)
	return out
}

// without returns a copy of u with id removed from whichever user lists
// it. A user left with no todos is dropped.
func (u UserTodoIDs) has(id int) bool {
	for _, ids := range u {
		if _, found := slices.BinarySearch(ids, id); found {
			return true
		}
	}
	return false
}

func (u UserTodoIDs) without(id int) UserTodoIDs {
	for user, ids := range u {
		i, found := slices.BinarySearch(ids, id)
		if !found {
			continue
		}
		out := maps.Clone(u)
		rest := slices.Delete(slices.Clone(ids), i, i+1)
		if len(rest) == 0 {
			delete(out, user)
		} else {
			out[user] = rest
		}
		return out
	}
	return u
}

// index builds the per-user ID lists for todos.
func index(todos []Todo) UserTodoIDs {
	out := UserTodoIDs{}
	for _, t := range todos {
		out[t.UserID] = append(out[t.UserID], t.ID)
	}
	for _, ids := range out {
		slices.Sort(ids)
	}
	return out
}
