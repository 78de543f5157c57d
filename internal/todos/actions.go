package todos

import "github.com/roach88/rxstore/internal/action"

// Action types.
const (
	LoadTodosType   action.Type = "todos/load"
	TodosLoadedType action.Type = "todos/loaded"
	AddTodoType     action.Type = "todos/add"
	TodoAddedType   action.Type = "todos/added"
	ToggleTodoType  action.Type = "todos/toggle"
	RemoveTodoType  action.Type = "todos/remove"
)

// LoadTodos asks the Source for every todo.
type LoadTodos struct{}

func (LoadTodos) Type() action.Type { return LoadTodosType }

// TodosLoaded carries the result of LoadTodos and replaces the state.
type TodosLoaded struct {
	Todos []Todo `yaml:"todos"`
}

func (TodosLoaded) Type() action.Type { return TodosLoadedType }

// AddTodo adds a todo optimistically and persists it.
type AddTodo struct {
	Todo Todo `yaml:",inline"`
}

func (AddTodo) Type() action.Type { return AddTodoType }

// TodoAdded confirms a persisted todo in its stored form. It only updates
// a todo the store still holds.
type TodoAdded struct {
	Todo Todo `yaml:",inline"`
}

func (TodoAdded) Type() action.Type { return TodoAddedType }

// ToggleTodo flips the completed flag of a todo.
type ToggleTodo struct {
	ID int `yaml:"id"`
}

func (ToggleTodo) Type() action.Type { return ToggleTodoType }

// RemoveTodo deletes a todo.
type RemoveTodo struct {
	ID int `yaml:"id"`
}

func (RemoveTodo) Type() action.Type { return RemoveTodoType }

// Register adds the todo action decoders to r.
func Register(r *action.Registry) error {
	decoders := []struct {
		t action.Type
		d action.Decoder
	}{
		{LoadTodosType, action.Unit(LoadTodos{})},
		{TodosLoadedType, action.Payload[TodosLoaded]()},
		{AddTodoType, action.Payload[AddTodo]()},
		{TodoAddedType, action.Payload[TodoAdded]()},
		{ToggleTodoType, action.Payload[ToggleTodo]()},
		{RemoveTodoType, action.Payload[RemoveTodo]()},
	}
	for _, d := range decoders {
		if err := r.Register(d.t, d.d); err != nil {
			return err
		}
	}
	return nil
}
