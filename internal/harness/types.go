package harness

// TraceEvent is one delivered action as recorded by the store observer.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Flow    string `json:"flow"`
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step dispatched and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists every delivered action in delivery order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final value of every cell, keyed by cell name.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
