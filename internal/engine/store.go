package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/rxstore/internal/action"
)

// Lifecycle is the state of a Store.
type Lifecycle int32

const (
	Constructed Lifecycle = iota
	Wired
	Initialized
	Disposed
)

func (l Lifecycle) String() string {
	switch l {
	case Constructed:
		return "constructed"
	case Wired:
		return "wired"
	case Initialized:
		return "initialized"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("lifecycle(%d)", int32(l))
	}
}

// Store composes cells, reducers, effects and the action bus.
//
// Build a store with New, DefineCell, RegisterReducer and
// RegisterEffects, then call Initialize. Wiring is fixed once the store
// is initialized.
//
// Thread-safety model:
//   - Dispatch: safe from any goroutine; deliveries are serialized
//   - builder calls: safe, but only effective before Initialize
//   - Settle, Dispose, Snapshot: safe from any goroutine
type Store struct {
	name      string
	logger    *slog.Logger
	flowGen   FlowTokenGenerator
	maxSteps  int
	observers []Observer

	clock *Clock
	bus   *bus

	mu        sync.Mutex // guards wiring state below
	state     atomic.Int32
	cells     map[string]cellHandle
	cellOrder []string
	reducers  []reducerBinding
	effects   []Effect
	wireErrs  []error

	flows     *flowTracker
	followUps *followUpQueue
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	detach    []func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithName labels the store in log records.
func WithName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

// WithFlowGenerator sets the flow token generator for root dispatches.
// Default: UUIDv7Generator.
func WithFlowGenerator(gen FlowTokenGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.flowGen = gen
		}
	}
}

// WithMaxSteps sets how many follow-up actions one flow may emit.
// Zero or a negative value disables the quota. Default: DefaultMaxSteps.
func WithMaxSteps(maxSteps int) Option {
	return func(s *Store) {
		s.maxSteps = maxSteps
	}
}

// WithObserver adds an observer that sees every delivered action.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// New creates an unwired store.
func New(opts ...Option) *Store {
	s := &Store{
		name:      "store",
		logger:    slog.Default(),
		flowGen:   UUIDv7Generator{},
		maxSteps:  DefaultMaxSteps,
		clock:     NewClock(),
		cells:     make(map[string]cellHandle),
		followUps: newFollowUpQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("store", s.name)
	s.bus = newBus(s.clock, s.logDelivered)
	s.flows = newFlowTracker(s.maxSteps)
	return s
}

// State returns the current lifecycle state.
func (s *Store) State() Lifecycle {
	return Lifecycle(s.state.Load())
}

// Name returns the store label.
func (s *Store) Name() string { return s.name }

// Clock returns the store's logical clock.
func (s *Store) Clock() *Clock { return s.clock }

// RegisterEffects appends effect bindings. Every matching effect runs
// concurrently for each delivered action.
func (s *Store) RegisterEffects(effects ...Effect) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range effects {
		if err := s.wiringOpenLocked(); err != nil {
			s.wiringFailedLocked("register effects", e.name, err)
			continue
		}
		if e.run == nil || e.variant == "" {
			s.wiringFailedLocked("register effects", e.name, errors.New("effect not created with CreateEffect"))
			continue
		}
		s.effects = append(s.effects, e)
		s.markWiredLocked()
	}
	return s
}

// Err returns the wiring errors collected so far, joined.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.wireErrs...)
}

// Initialize attaches observers, reducers and the effect stage to the bus
// and starts the follow-up loop. Effect handlers receive a context derived
// from ctx that is cancelled on Dispose.
//
// Returns the collected wiring errors, if any, and leaves the store
// uninitialized in that case.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()

	switch s.State() {
	case Initialized:
		s.mu.Unlock()
		return ErrAlreadyInitialized
	case Disposed:
		s.mu.Unlock()
		return ErrDisposed
	}

	if err := errors.Join(s.wireErrs...); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("initialize: %w", err)
	}

	for _, o := range s.observers {
		s.detach = append(s.detach, s.bus.subscribe("observer", o.OnAction))
	}
	for _, r := range s.reducers {
		s.detach = append(s.detach, s.bus.subscribe("reducer:"+r.key, r.apply))
	}
	if len(s.effects) > 0 {
		effects := make([]Effect, len(s.effects))
		copy(effects, s.effects)
		s.detach = append(s.detach, s.bus.subscribe("effects", func(env Envelope) {
			s.launchEffects(effects, env)
		}))
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.state.Store(int32(Initialized))
	cells, reducers, effects := len(s.cells), len(s.reducers), len(s.effects)
	s.mu.Unlock()

	go s.run(s.ctx)

	s.logger.Info("store initialized",
		"cells", cells,
		"reducers", reducers,
		"effects", effects,
	)
	return nil
}

// Dispatch delivers a to every reducer and effect. Reducers have been
// applied when Dispatch returns; effects continue in the background.
//
// A Dispatch made while another delivery is in progress, such as from a
// cell subscriber or an observer, queues a behind the current action and
// returns at once. The delivering goroutine applies it before its own
// Dispatch returns.
//
// Each call starts a new flow. Dispatching action.Empty is a no-op.
// Before Initialize the action is dropped and ErrNotInitialized returned;
// after Dispose, ErrDisposed.
func (s *Store) Dispatch(a action.Action) error {
	if a == nil {
		return ErrNilAction
	}
	switch s.State() {
	case Constructed, Wired:
		s.logger.Debug("dispatch before initialize dropped", "action", a.Type())
		return fmt.Errorf("dispatch %s: %w", a.Type(), ErrNotInitialized)
	case Disposed:
		return fmt.Errorf("dispatch %s: %w", a.Type(), ErrDisposed)
	}
	if action.IsEmpty(a) {
		return nil
	}

	s.deliver(s.flowGen.Generate(), a)
	return nil
}

func (s *Store) deliver(flow string, a action.Action) {
	s.bus.publish(flow, a)
}

func (s *Store) logDelivered(env Envelope) {
	s.logger.Debug("action delivered",
		"action", env.Action.Type(),
		"seq", env.Seq,
		"flow", env.Flow,
	)
}

// launchEffects runs on the dispatching goroutine inside the bus delivery.
// It only starts goroutines; the bus is never blocked by effect work.
func (s *Store) launchEffects(effects []Effect, env Envelope) {
	for _, e := range effects {
		if !e.Matches(env.Action) {
			continue
		}
		s.flows.start(env.Flow)
		go s.runEffect(e, env)
	}
}

func (s *Store) runEffect(e Effect, env Envelope) {
	s.logger.Debug("effect started",
		"effect", e.name,
		"action", env.Action.Type(),
		"seq", env.Seq,
		"flow", env.Flow,
	)

	out, err := e.evaluate(s.ctx, s, env.Flow, env.Action)
	if err != nil {
		// Log and continue: the failure travels on as an action.
		s.logger.Error("effect failed",
			"effect", e.name,
			"action", env.Action.Type(),
			"seq", env.Seq,
			"flow", env.Flow,
			"error", err,
		)
	}

	if action.IsEmpty(out) {
		s.flows.finish(env.Flow)
		return
	}

	if !s.followUps.Enqueue(followUp{Flow: env.Flow, Effect: e.name, Action: out}) {
		s.logger.Debug("follow-up dropped: store disposed",
			"effect", e.name,
			"action", out.Type(),
			"flow", env.Flow,
		)
		s.flows.finish(env.Flow)
	}
}

// run re-dispatches effect follow-ups in completion order until ctx is
// cancelled or the queue is closed.
func (s *Store) run(ctx context.Context) {
	defer close(s.done)

	for {
		if f, ok := s.followUps.TryDequeue(); ok {
			s.dispatchFollowUp(f)
			continue
		}

		select {
		case <-ctx.Done():
			for _, f := range s.followUps.Close() {
				s.flows.finish(f.Flow)
			}
			s.logger.Debug("follow-up loop stopping: context cancelled")
			return

		case <-s.followUps.Wait():
			if s.followUps.Closed() && s.followUps.Len() == 0 {
				s.logger.Debug("follow-up loop stopping: queue closed")
				return
			}
		}
	}
}

func (s *Store) dispatchFollowUp(f followUp) {
	defer s.flows.finish(f.Flow)

	if err := s.flows.step(f.Flow); err != nil {
		s.logger.Error("max steps quota exceeded",
			"flow", f.Flow,
			"effect", f.Effect,
			"action", f.Action.Type(),
			"error", err,
		)
		return
	}
	if s.State() != Initialized {
		return
	}
	s.deliver(f.Flow, f.Action)
}

// Settle blocks until no effect is running and no follow-up is queued,
// including follow-ups of follow-ups. Returns ctx.Err() on cancellation
// and ErrDisposed if the store is disposed while waiting.
func (s *Store) Settle(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case <-s.flows.idleCh():
		return nil
	default:
	}

	if done == nil {
		return ErrNotInitialized
	}

	for {
		select {
		case <-s.flows.idleCh():
			if s.flows.pendingCount() == 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return ErrDisposed
		}
	}
}

// Pending returns the number of effect invocations not yet settled.
func (s *Store) Pending() int {
	return s.flows.pendingCount()
}

// Dispose cancels effect contexts, stops the follow-up loop, detaches
// every binding from the bus and releases every cell subscription.
// Follow-ups still in flight are dropped. Dispose is idempotent.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.State() == Disposed {
		s.mu.Unlock()
		return
	}
	s.state.Store(int32(Disposed))
	cancel, done := s.cancel, s.done
	detach := s.detach
	s.detach = nil
	cells := make([]cellHandle, 0, len(s.cellOrder))
	for _, name := range s.cellOrder {
		cells = append(cells, s.cells[name])
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	} else {
		s.followUps.Close()
	}

	for _, d := range detach {
		d()
	}
	for _, c := range cells {
		c.close()
	}

	s.logger.Info("store disposed")
}

// Cells returns the registered cell keys in definition order.
func (s *Store) Cells() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.cellOrder))
	copy(out, s.cellOrder)
	return out
}

// Snapshot returns the current value of every cell keyed by name.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[string]any, len(s.cells))
	for name, c := range s.cells {
		snap[name] = c.current()
	}
	return snap
}

func (s *Store) wiringOpenLocked() error {
	switch s.State() {
	case Initialized:
		return ErrStarted
	case Disposed:
		return ErrDisposed
	}
	return nil
}

func (s *Store) wiringFailedLocked(op, key string, err error) {
	werr := &WiringError{Op: op, Key: key, Err: err}
	s.wireErrs = append(s.wireErrs, werr)
	s.logger.Error("wiring failed", "op", op, "key", key, "error", err)
}

func (s *Store) markWiredLocked() {
	if s.State() == Constructed {
		s.state.Store(int32(Wired))
	}
}
