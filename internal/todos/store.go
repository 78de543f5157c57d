package todos

import (
	"slices"

	"github.com/roach88/rxstore/internal/engine"
)

// Cells are the todo cells defined by Wire.
type Cells struct {
	Todos       *engine.Cell[State]
	UserTodoIDs *engine.Cell[UserTodoIDs]
	Error       *engine.Cell[string]
}

// Wire defines the todo cells on s, binds their reducers and, when src is
// non-nil, registers the persistence effects.
func Wire(s *engine.Store, src Source) Cells {
	c := Cells{
		Todos:       engine.DefineCellFunc(s, TodosKey, State{}, statesEqual),
		UserTodoIDs: engine.DefineCellFunc(s, UserTodoIDsKey, UserTodoIDs{}, userIDsEqual),
		Error:       engine.DefineCell(s, ErrorKey, ""),
	}
	engine.RegisterReducer(s, TodosKey, ReduceTodos)
	engine.RegisterReducer(s, UserTodoIDsKey, ReduceUserTodoIDs)
	engine.RegisterReducer(s, ErrorKey, ReduceError)
	if src != nil {
		s.RegisterEffects(Effects(src)...)
	}
	return c
}

// TodosForUser returns a selector over userID's todos ordered by ID.
// The result is never nil.
func TodosForUser(userID int) func(*engine.Store) *engine.Selector[[]Todo] {
	return func(s *engine.Store) *engine.Selector[[]Todo] {
		return engine.CreateSelector(
			engine.MustCell(s, TodosKey),
			engine.MustCell(s, UserTodoIDsKey),
			func(todos State, ids UserTodoIDs) []Todo {
				out := make([]Todo, 0, len(ids[userID]))
				for _, id := range ids[userID] {
					if t, ok := todos[id]; ok {
						out = append(out, t)
					}
				}
				slices.SortFunc(out, func(a, b Todo) int { return a.ID - b.ID })
				return out
			},
		)
	}
}

// Summary counts todos across every user.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Users     int `json:"users"`
}

// Summarize returns a selector over the todo counts.
func Summarize(s *engine.Store) *engine.Selector[Summary] {
	return engine.CreateSelector(
		engine.MustCell(s, TodosKey),
		engine.MustCell(s, UserTodoIDsKey),
		func(todos State, ids UserTodoIDs) Summary {
			sum := Summary{Total: len(todos), Users: len(ids)}
			for _, t := range todos {
				if t.Completed {
					sum.Completed++
				}
			}
			return sum
		},
	)
}
