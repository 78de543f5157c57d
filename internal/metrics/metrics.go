// Package metrics counts store traffic with Prometheus collectors.
//
// A Collector is an engine.Observer: pass it to engine.WithObserver and
// every delivered action is counted by type. Failures emitted by effects
// are counted again by effect name and trigger type.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rxstore/internal/action"
	"github.com/roach88/rxstore/internal/engine"
)

const namespace = "rxstore"

// Collector holds the counters for one store.
type Collector struct {
	actions  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var _ engine.Observer = (*Collector)(nil)

// New registers the store's counters on reg. The store name becomes a
// constant "store" label.
func New(reg prometheus.Registerer, store string) (*Collector, error) {
	labels := prometheus.Labels{"store": store}
	c := &Collector{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actions_total",
			Help:        "Actions delivered to reducers, by action type.",
			ConstLabels: labels,
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "effect_failures_total",
			Help:        "Effect invocations that ended in a failure action.",
			ConstLabels: labels,
		}, []string{"effect", "trigger"}),
	}

	for _, col := range []prometheus.Collector{c.actions, c.failures} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics for store %s: %w", store, err)
		}
	}
	return c, nil
}

// OnAction implements engine.Observer.
func (c *Collector) OnAction(env engine.Envelope) {
	c.actions.WithLabelValues(string(env.Action.Type())).Inc()
	if f, ok := env.Action.(action.Failed); ok {
		c.failures.WithLabelValues(f.Effect, string(action.Of(f.Trigger))).Inc()
	}
}

// Counts gathers every counter in g, keyed by series name in exposition
// form: name{label="value",...} with labels sorted by name.
func Counts(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(pairs)
			out[mf.GetName()+"{"+strings.Join(pairs, ",")+"}"] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}
