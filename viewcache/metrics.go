package viewcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-forum-cache/cache"
)

// Metrics counts cache outcomes per view and invalidations per mutation.
// It implements cache.Observer. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Hits            *prometheus.CounterVec
	Misses          *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	Invalidations   *prometheus.CounterVec
	InvalidatedKeys prometheus.Counter
}

var _ cache.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors under namespace and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view_cache",
			Name:      "hits_total",
			Help:      "Cached view reads served from the cache.",
		}, []string{"view"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view_cache",
			Name:      "misses_total",
			Help:      "Cached view reads that rebuilt the view.",
		}, []string{"view"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view_cache",
			Name:      "backend_failures_total",
			Help:      "Cache backend or codec failures by operation.",
		}, []string{"op"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view_cache",
			Name:      "invalidations_total",
			Help:      "Invalidation batches by mutation kind.",
		}, []string{"mutation"}),
		InvalidatedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view_cache",
			Name:      "invalidated_keys_total",
			Help:      "Keys deleted by invalidation.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Failures, m.Invalidations, m.InvalidatedKeys)
	}
	return m
}

func (m *Metrics) Hit(kind cache.ViewKind) {
	if m == nil {
		return
	}
	m.Hits.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) Miss(kind cache.ViewKind) {
	if m == nil {
		return
	}
	m.Misses.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) Failure(op string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(op).Inc()
}

func (m *Metrics) observeInvalidation(kind MutationKind, keys int) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(kind.String()).Inc()
	m.InvalidatedKeys.Add(float64(keys))
}
