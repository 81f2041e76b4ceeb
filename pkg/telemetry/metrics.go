// Package telemetry provides Prometheus counters for binding activity and
// scene mutations.
package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Binding outcomes.
const (
	OutcomeFocus    = "focus"    // focus computed from two outline crossings
	OutcomeFallback = "fallback" // edge point with zero gap
)

// Collector holds the counters. Each collector owns its registry so several
// can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	Bindings       *prometheus.CounterVec
	HoverLookups   *prometheus.CounterVec
	SceneMutations *prometheus.CounterVec
}

// NewCollector creates a collector with the given metric namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	bindings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bindings_total",
			Help:      "Total number of endpoint bindings",
		},
		[]string{"endpoint", "outcome"},
	)

	hoverLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hover_lookups_total",
			Help:      "Total number of bindable target lookups",
		},
		[]string{"result"},
	)

	sceneMutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_mutations_total",
			Help:      "Total number of applied element mutations",
		},
		[]string{"type"},
	)

	registry.MustRegister(bindings, hoverLookups, sceneMutations)

	return &Collector{
		registry:       registry,
		Bindings:       bindings,
		HoverLookups:   hoverLookups,
		SceneMutations: sceneMutations,
	}
}

// Registry returns the collector's registry, e.g. for promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordBinding counts one bound endpoint.
func (c *Collector) RecordBinding(endpoint, outcome string) {
	c.Bindings.WithLabelValues(endpoint, outcome).Inc()
}

// RecordHover counts one target lookup.
func (c *Collector) RecordHover(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.HoverLookups.WithLabelValues(result).Inc()
}

// RecordMutation counts one applied mutation of an element of the given type.
func (c *Collector) RecordMutation(elementType string) {
	c.SceneMutations.WithLabelValues(elementType).Inc()
}

// Snapshot gathers every counter value keyed as name{label="value",...}
// with labels in name order. Counters never touched are absent.
func (c *Collector) Snapshot() (map[string]float64, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[seriesKey(mf.GetName(), m.GetLabel())] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

func seriesKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, len(labels))
	for i, lp := range labels {
		parts[i] = fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

// Format renders a snapshot one series per line, sorted.
func Format(snapshot map[string]float64) string {
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %g\n", k, snapshot[k])
	}
	return sb.String()
}
