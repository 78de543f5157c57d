package todos

import (
	"strings"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/engine"
)

// Cell keys.
var (
	TodosKey       = engine.NewKey[State]("todos")
	UserTodoIDsKey = engine.NewKey[UserTodoIDs]("userTodoIds")
	ErrorKey       = engine.NewKey[string]("todosError")
)

// ReduceTodos is the reducer of the todos cell.
func ReduceTodos(state State, a action.Action) State {
	switch a := a.(type) {
	case TodosLoaded:
		next := make(State, len(a.Todos))
		for _, t := range a.Todos {
			next[t.ID] = t
		}
		return next
	case AddTodo:
		return state.with(a.Todo)
	case TodoAdded:
		// A todo removed while its save was in flight stays removed.
		if _, ok := state[a.Todo.ID]; !ok {
			return state
		}
		return state.with(a.Todo)
	case ToggleTodo:
		t, ok := state[a.ID]
		if !ok {
			return state
		}
		t.Completed = !t.Completed
		return state.with(t)
	case RemoveTodo:
		if _, ok := state[a.ID]; !ok {
			return state
		}
		return state.without(a.ID)
	default:
		return state
	}
}

// ReduceUserTodoIDs is the reducer of the per-user index.
func ReduceUserTodoIDs(state UserTodoIDs, a action.Action) UserTodoIDs {
	switch a := a.(type) {
	case TodosLoaded:
		return index(a.Todos)
	case AddTodo:
		return state.without(a.Todo.ID).with(a.Todo.UserID, a.Todo.ID)
	case TodoAdded:
		if !state.has(a.Todo.ID) {
			return state
		}
		return state.without(a.Todo.ID).with(a.Todo.UserID, a.Todo.ID)
	case RemoveTodo:
		return state.without(a.ID)
	default:
		return state
	}
}

// ReduceError keeps the last failure of a todos effect. A successful load
// clears it.
func ReduceError(state string, a action.Action) string {
	switch a := a.(type) {
	case action.Failed:
		if a.Trigger != nil && strings.HasPrefix(string(a.Trigger.Type()), "todos/") {
			return a.String()
		}
		return state
	case TodosLoaded:
		return ""
	default:
		return state
	}
}
