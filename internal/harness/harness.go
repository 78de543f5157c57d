package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/engine"
	"github.com/roach88/rxstore/internal/testutil"
)

// DefaultStepTimeout bounds how long a step may take to settle.
const DefaultStepTimeout = 5 * time.Second

// Harness runs one scenario against a fresh store.
type Harness struct {
	logger      *slog.Logger
	stepTimeout time.Duration

	mu    sync.Mutex
	trace []TraceEvent
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger handed to the store. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithStepTimeout bounds how long each step may take to settle.
func WithStepTimeout(d time.Duration) Option {
	return func(h *Harness) {
		if d > 0 {
			h.stepTimeout = d
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the domain store with sequential flow tokens
//  2. Dispatch each step and settle the store
//  3. Snapshot every cell
//  4. Evaluate assertions against trace and snapshot
//
// A step whose dispatch fails is recorded as a result error. An error is
// returned only when the scenario cannot be run at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger:      testutil.DiscardLogger(),
		stepTimeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	d, ok := lookupDomain(scenario.Domain)
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", scenario.Domain)
	}
	reg, err := Registry(scenario.Domain)
	if err != nil {
		return nil, err
	}

	s := engine.New(
		engine.WithName(scenario.Name),
		engine.WithLogger(h.logger),
		engine.WithFlowGenerator(engine.NewSequenceGenerator("flow")),
		engine.WithObserver(engine.ObserverFunc(h.record)),
	)
	release, err := d.wire(ctx, s, scenario.Seed)
	if err != nil {
		return nil, fmt.Errorf("wire %s domain: %w", scenario.Domain, err)
	}
	defer release()

	if err := s.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	defer s.Dispose()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, s, reg, i, step); err != nil {
			result.AddError(err.Error())
		}
	}

	result.Trace = h.recorded()
	for name, v := range s.Snapshot() {
		state, err := plainValue(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot cell %s: %w", name, err)
		}
		result.State[name] = state
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep decodes and dispatches one step, then waits for the store
// to settle.
func (h *Harness) executeStep(ctx context.Context, s *engine.Store, reg *action.Registry, i int, step Step) error {
	a, err := reg.Decode(action.Type(step.Dispatch), &step.Payload)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}

	if err := s.Dispatch(a); err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}

	settleCtx, cancel := context.WithTimeout(ctx, h.stepTimeout)
	defer cancel()
	if err := s.Settle(settleCtx); err != nil {
		return fmt.Errorf("steps[%d]: settle: %w", i, err)
	}

	h.logger.Info("step completed",
		"step", i,
		"action", a.Type(),
		"pending", s.Pending(),
	)
	return nil
}

func (h *Harness) record(env engine.Envelope) {
	payload, err := payloadOf(env.Action)
	if err != nil {
		h.logger.Error("trace payload not encodable",
			"action", env.Action.Type(),
			"error", err,
		)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.trace = append(h.trace, TraceEvent{
		Seq:     env.Seq,
		Flow:    env.Flow,
		Action:  string(env.Action.Type()),
		Payload: payload,
	})
}

func (h *Harness) recorded() []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]TraceEvent, len(h.trace))
	copy(out, h.trace)
	return out
}
