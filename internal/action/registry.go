package action

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownType is returned when decoding an action type nobody registered.
var ErrUnknownType = errors.New("unknown action type")

// Decoder builds an action from an optional YAML payload.
// payload is nil when the source omitted it.
type Decoder func(payload *yaml.Node) (Action, error)

// Registry maps action types to decoders.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[Type]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[Type]Decoder)}
}

// Register adds a decoder for t. Registering a type twice is an error.
func (r *Registry) Register(t Type, d Decoder) error {
	if t == "" {
		return fmt.Errorf("register action: empty type")
	}
	if t == EmptyType || t == FailedType {
		return fmt.Errorf("register action %s: reserved type", t)
	}
	if d == nil {
		return fmt.Errorf("register action %s: nil decoder", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[t]; exists {
		return fmt.Errorf("register action %s: already registered", t)
	}
	r.decoders[t] = d
	return nil
}

// MustRegister is Register for package-level wiring; it panics on error.
func (r *Registry) MustRegister(t Type, d Decoder) {
	if err := r.Register(t, d); err != nil {
		panic(err)
	}
}

// Decode builds an action of type t from payload.
func (r *Registry) Decode(t Type, payload *yaml.Node) (Action, error) {
	r.mu.RLock()
	d, ok := r.decoders[t]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("decode %q: %w", t, ErrUnknownType)
	}
	a, err := d(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", t, err)
	}
	if a == nil || a.Type() != t {
		return nil, fmt.Errorf("decode %q: decoder produced %q", t, Of(a))
	}
	return a, nil
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.decoders))
	for t := range r.decoders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Unit returns a decoder for an action without payload.
// Any payload given is ignored.
func Unit(a Action) Decoder {
	return func(*yaml.Node) (Action, error) {
		return a, nil
	}
}

// Payload returns a decoder that unmarshals the payload into A.
// A missing payload yields the zero value of A.
func Payload[A Action]() Decoder {
	return func(payload *yaml.Node) (Action, error) {
		var a A
		if payload == nil || payload.Kind == 0 {
			return a, nil
		}
		if err := payload.Decode(&a); err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		return a, nil
	}
}
