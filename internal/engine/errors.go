package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rxstore/internal/action"
)

// Lifecycle errors.
var (
	// ErrNotInitialized is returned by Dispatch before Initialize.
	// The action is dropped.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("store already initialized")

	// ErrDisposed is returned once the store has been disposed.
	ErrDisposed = errors.New("store disposed")

	// ErrNilAction is returned when dispatching a nil action.
	ErrNilAction = errors.New("nil action")
)

// Wiring errors.
var (
	ErrUnknownCell   = errors.New("unknown cell")
	ErrDuplicateCell = errors.New("duplicate cell")
	ErrCellType      = errors.New("cell type mismatch")
	ErrStarted       = errors.New("store already started")
)

// ErrEffectPanic wraps the value recovered from a panicking effect handler.
var ErrEffectPanic = errors.New("effect panicked")

// WiringError reports a builder call that could not be applied.
// Wiring errors are collected and returned by Initialize.
type WiringError struct {
	Op  string // "define cell", "register reducer", "register effects"
	Key string // cell key or effect name
	Err error
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *WiringError) Unwrap() error {
	return e.Err
}

// VariantMismatchError is returned when an action carries an effect's
// variant tag but is not the Go type the handler expects.
type VariantMismatchError struct {
	Effect  string
	Variant action.Type
	Got     string // Go type name of the received action
}

func (e *VariantMismatchError) Error() string {
	return fmt.Sprintf("effect %s: action tagged %s has type %s", e.Effect, e.Variant, e.Got)
}

// StepsExceededError is logged when a flow emits more follow-up actions
// than the configured quota. The offending follow-up is dropped.
type StepsExceededError struct {
	FlowToken string
	Steps     int
	Limit     int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("flow %s exceeded max steps quota: %d steps > %d limit",
		e.FlowToken, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsWiringError reports whether err contains a WiringError.
func IsWiringError(err error) bool {
	var we *WiringError
	return errors.As(err, &we)
}
