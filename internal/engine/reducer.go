package engine

import (
	"fmt"

	"github.com/roach88/rxstore/internal/action"
)

// Reducer computes the next value of a cell from its current value and
// an action. Reducers must be pure and total: no side effects, no reads
// of other cells, and no panics. Unrecognized actions return state as is.
type Reducer[T any] func(state T, a action.Action) T

type reducerBinding struct {
	key   string
	apply func(env Envelope)
}

// DefineCell registers a cell under key with an initial value. Consecutive
// values are compared with ==.
//
// The returned cell is valid even when wiring fails (duplicate key,
// store already started); the failure is reported by Initialize.
func DefineCell[T comparable](s *Store, key Key[T], initial T) *Cell[T] {
	return DefineCellFunc(s, key, initial, func(a, b T) bool { return a == b })
}

// DefineCellFunc registers a cell whose values are compared with equal,
// for state types that are not comparable (maps, slices).
func DefineCellFunc[T any](s *Store, key Key[T], initial T, equal func(a, b T) bool) *Cell[T] {
	c := newCell(key.name, initial, equal)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wiringOpenLocked(); err != nil {
		s.wiringFailedLocked("define cell", key.name, err)
		return c
	}
	if _, exists := s.cells[key.name]; exists {
		s.wiringFailedLocked("define cell", key.name, ErrDuplicateCell)
		return c
	}

	s.cells[key.name] = c
	s.cellOrder = append(s.cellOrder, key.name)
	s.markWiredLocked()
	return c
}

// CellOf looks up the cell registered under key.
func CellOf[T any](s *Store, key Key[T]) (*Cell[T], error) {
	s.mu.Lock()
	h, ok := s.cells[key.name]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("cell %s: %w", key.name, ErrUnknownCell)
	}
	c, ok := h.(*Cell[T])
	if !ok {
		return nil, fmt.Errorf("cell %s: %w", key.name, ErrCellType)
	}
	return c, nil
}

// MustCell is CellOf for code paths where the key is known to be wired.
func MustCell[T any](s *Store, key Key[T]) *Cell[T] {
	c, err := CellOf(s, key)
	if err != nil {
		panic(err)
	}
	return c
}

// RegisterReducer binds reduce to the cell registered under key. For
// every delivered action the reducer computes the next value from the
// cell's current one and sends it to the cell. Reducers run in
// registration order.
//
// A reducer panic is a programming error: it is logged and re-raised on
// the dispatching goroutine.
func RegisterReducer[T any](s *Store, key Key[T], reduce Reducer[T]) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wiringOpenLocked(); err != nil {
		s.wiringFailedLocked("register reducer", key.name, err)
		return s
	}
	h, ok := s.cells[key.name]
	if !ok {
		s.wiringFailedLocked("register reducer", key.name, ErrUnknownCell)
		return s
	}
	cell, ok := h.(*Cell[T])
	if !ok {
		s.wiringFailedLocked("register reducer", key.name, ErrCellType)
		return s
	}

	s.reducers = append(s.reducers, reducerBinding{
		key: key.name,
		apply: func(env Envelope) {
			defer s.reducerPanicked(key.name, env)
			cell.send(reduce(cell.Current(), env.Action))
		},
	})
	s.markWiredLocked()
	return s
}

func (s *Store) reducerPanicked(key string, env Envelope) {
	if r := recover(); r != nil {
		s.logger.Error("reducer panicked",
			"cell", key,
			"action", action.Of(env.Action),
			"seq", env.Seq,
			"flow", env.Flow,
			"panic", r,
		)
		panic(r)
	}
}
