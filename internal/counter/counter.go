// Package counter is the smallest store domain: one integer cell driven
// by increment, decrement and reset actions.
package counter

import (
	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/engine"
)

// Action types.
const (
	IncrementType action.Type = "counter/increment"
	DecrementType action.Type = "counter/decrement"
	ResetType     action.Type = "counter/reset"
)

// Key addresses the counter cell.
var Key = engine.NewKey[int]("counter")

type Increment struct{}

func (Increment) Type() action.Type { return IncrementType }

type Decrement struct{}

func (Decrement) Type() action.Type { return DecrementType }

// Reset sets the counter to Value.
type Reset struct {
	Value int `yaml:"value"`
}

func (Reset) Type() action.Type { return ResetType }

// Reduce is the counter reducer.
func Reduce(state int, a action.Action) int {
	switch a := a.(type) {
	case Increment:
		return state + 1
	case Decrement:
		return state - 1
	case Reset:
		return a.Value
	default:
		return state
	}
}

// Wire defines the counter cell on s, starting at 0, and binds Reduce.
func Wire(s *engine.Store) *engine.Cell[int] {
	cell := engine.DefineCell(s, Key, 0)
	engine.RegisterReducer(s, Key, Reduce)
	return cell
}

// Register adds the counter action decoders to r.
func Register(r *action.Registry) error {
	if err := r.Register(IncrementType, action.Unit(Increment{})); err != nil {
		return err
	}
	if err := r.Register(DecrementType, action.Unit(Decrement{})); err != nil {
		return err
	}
	return r.Register(ResetType, action.Payload[Reset]())
}
