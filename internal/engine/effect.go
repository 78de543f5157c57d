package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rxstore/internal/action"
)

// Handler performs the work of an effect for one action of type A.
//
// It may block on I/O; it runs on its own goroutine. Returning a nil
// action (or action.Empty) emits nothing. Returning an error emits the
// effect's failure action instead.
type Handler[A action.Action] func(ctx context.Context, s *Store, a A) (action.Action, error)

// Effect binds a handler to one action variant.
type Effect struct {
	name    string
	variant action.Type
	run     func(ctx context.Context, s *Store, a action.Action) (action.Action, error)
	onError func(f action.Failed) action.Action
}

// CreateEffect builds an effect for actions tagged variant. A is the Go
// type the handler expects; an action with the right tag but a different
// Go type fails with VariantMismatchError.
func CreateEffect[A action.Action](variant action.Type, handler Handler[A]) Effect {
	return Effect{
		name:    string(variant),
		variant: variant,
		run: func(ctx context.Context, s *Store, a action.Action) (action.Action, error) {
			typed, ok := a.(A)
			if !ok {
				return nil, &VariantMismatchError{Variant: variant, Got: fmt.Sprintf("%T", a)}
			}
			return handler(ctx, s, typed)
		},
	}
}

// Named returns a copy of e with a name used in logs and failure actions.
// Defaults to the variant.
func (e Effect) Named(name string) Effect {
	e.name = name
	return e
}

// WithFailure returns a copy of e that maps handler failures through fn
// instead of emitting action.Failed directly.
func (e Effect) WithFailure(fn func(f action.Failed) action.Action) Effect {
	e.onError = fn
	return e
}

// Name returns the effect name.
func (e Effect) Name() string { return e.name }

// Variant returns the action type the effect reacts to.
func (e Effect) Variant() action.Type { return e.variant }

// Matches reports whether a would trigger the effect.
func (e Effect) Matches(a action.Action) bool {
	return a != nil && a.Type() == e.variant
}

// Evaluate runs the effect against a synchronously.
//
// A non-matching action yields action.Empty without calling the handler.
// Handler errors and panics are converted to the failure action. flow is
// recorded on failures.
func (e Effect) Evaluate(ctx context.Context, s *Store, flow string, a action.Action) action.Action {
	out, _ := e.evaluate(ctx, s, flow, a)
	return out
}

// evaluate is Evaluate that also returns the handler failure, if any.
func (e Effect) evaluate(ctx context.Context, s *Store, flow string, a action.Action) (out action.Action, err error) {
	if !e.Matches(a) {
		return action.Empty, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEffectPanic, r)
			out = e.fail(flow, a, err)
		}
	}()

	result, err := e.run(ctx, s, a)
	if err != nil {
		var mismatch *VariantMismatchError
		if errors.As(err, &mismatch) && mismatch.Effect == "" {
			mismatch.Effect = e.name
		}
		return e.fail(flow, a, err), err
	}
	if result == nil {
		return action.Empty, nil
	}
	return result, nil
}

func (e Effect) fail(flow string, trigger action.Action, err error) action.Action {
	f := action.Failed{Trigger: trigger, Effect: e.name, Flow: flow, Err: err}
	if e.onError != nil {
		if mapped := e.onError(f); mapped != nil {
			return mapped
		}
	}
	return f
}
