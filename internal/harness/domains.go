package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/counter"
	"github.com/roach88/rxstore/internal/engine"
	"github.com/roach88/rxstore/internal/todos"
	"github.com/roach88/rxstore/internal/todostore"
)

// domain knows how to wire one store domain for a scenario run.
type domain struct {
	seedable bool
	register func(r *action.Registry) error

	// wire defines the domain on s. The returned func releases whatever
	// wire acquired.
	wire func(ctx context.Context, s *engine.Store, seed []todos.Todo) (func(), error)
}

var domains = map[string]domain{
	"counter": {
		register: counter.Register,
		wire: func(_ context.Context, s *engine.Store, _ []todos.Todo) (func(), error) {
			counter.Wire(s)
			return func() {}, nil
		},
	},
	"todos": {
		seedable: true,
		register: todos.Register,
		wire: func(ctx context.Context, s *engine.Store, seed []todos.Todo) (func(), error) {
			db, err := todostore.Open(":memory:")
			if err != nil {
				return nil, err
			}
			if err := db.Seed(ctx, seed); err != nil {
				db.Close()
				return nil, err
			}
			todos.Wire(s, db)
			return func() { db.Close() }, nil
		},
	},
}

func lookupDomain(name string) (domain, bool) {
	d, ok := domains[name]
	return d, ok
}

// DomainNames returns the scenario domains in sorted order.
func DomainNames() []string {
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Registry returns a registry holding the action decoders of a domain.
func Registry(name string) (*action.Registry, error) {
	d, ok := lookupDomain(name)
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", name)
	}
	r := action.NewRegistry()
	if err := d.register(r); err != nil {
		return nil, fmt.Errorf("register %s actions: %w", name, err)
	}
	return r, nil
}
