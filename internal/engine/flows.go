package engine

import "sync"

// DefaultMaxSteps is the default number of follow-up actions one flow may
// emit before further follow-ups are dropped.
const DefaultMaxSteps = 1000

type flowState struct {
	inflight int // effect invocations started and not yet accounted for
	steps    int // follow-ups dispatched so far
}

// flowTracker counts in-flight effect work per flow and overall.
//
// An effect invocation is "in flight" from launch until its follow-up has
// been dispatched (or until it completes with nothing to emit). A flow's
// bookkeeping is dropped when its last invocation settles; children are
// always started before their parent settles, so a cascade keeps its flow
// alive until the whole cascade is done.
type flowTracker struct {
	mu       sync.Mutex
	maxSteps int
	flows    map[string]*flowState
	pending  int
	idle     chan struct{} // closed while pending == 0
}

func newFlowTracker(maxSteps int) *flowTracker {
	idle := make(chan struct{})
	close(idle)
	return &flowTracker{
		maxSteps: maxSteps,
		flows:    make(map[string]*flowState),
		idle:     idle,
	}
}

// start records a launched effect invocation for flow.
func (f *flowTracker) start(flow string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.flows[flow]
	if !ok {
		st = &flowState{}
		f.flows[flow] = st
	}
	st.inflight++

	if f.pending == 0 {
		f.idle = make(chan struct{})
	}
	f.pending++
}

// finish settles one invocation started with start.
func (f *flowTracker) finish(flow string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if st, ok := f.flows[flow]; ok {
		st.inflight--
		if st.inflight <= 0 {
			delete(f.flows, flow)
		}
	}

	if f.pending == 0 {
		return
	}
	f.pending--
	if f.pending == 0 {
		close(f.idle)
	}
}

// step counts one follow-up dispatch against the flow's quota.
func (f *flowTracker) step(flow string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.flows[flow]
	if !ok {
		st = &flowState{}
		f.flows[flow] = st
	}
	st.steps++
	if f.maxSteps > 0 && st.steps > f.maxSteps {
		return &StepsExceededError{FlowToken: flow, Steps: st.steps, Limit: f.maxSteps}
	}
	return nil
}

// idleCh returns a channel closed once nothing is pending.
func (f *flowTracker) idleCh() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

func (f *flowTracker) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *flowTracker) activeFlows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flows)
}
