package action

import "fmt"

// Type is the discriminant of an action variant, e.g. "counter/increment".
type Type string

// Action is an event dispatched into a store.
// Implementations must be immutable values.
type Action interface {
	Type() Type
}

// Reserved action types.
const (
	EmptyType  Type = "rxstore/empty"
	FailedType Type = "rxstore/failed"
)

type empty struct{}

func (empty) Type() Type { return EmptyType }

// Empty is the no-op sentinel. It never reaches reducers or effects.
var Empty Action = empty{}

// IsEmpty reports whether a carries nothing to deliver.
// A nil action counts as empty.
func IsEmpty(a Action) bool {
	return a == nil || a.Type() == EmptyType
}

// Failed reports an effect handler failure.
//
// Trigger is the action the handler was invoked with, Effect the name of
// the binding and Flow the flow token inherited from the trigger.
type Failed struct {
	Trigger Action
	Effect  string
	Flow    string
	Err     error
}

// Type implements Action.
func (Failed) Type() Type { return FailedType }

// Unwrap exposes the handler error to errors.Is / errors.As.
func (f Failed) Unwrap() error { return f.Err }

func (f Failed) String() string {
	trigger := Type("")
	if f.Trigger != nil {
		trigger = f.Trigger.Type()
	}
	return fmt.Sprintf("effect %s failed on %s: %v", f.Effect, trigger, f.Err)
}

// Of returns the type of a, or EmptyType for nil.
func Of(a Action) Type {
	if a == nil {
		return EmptyType
	}
	return a.Type()
}
