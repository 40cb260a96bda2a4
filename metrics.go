package zkelection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type electionMetrics struct {
	registrations prometheus.Counter
	evaluations   *prometheus.CounterVec
	events        *prometheus.CounterVec
	leader        prometheus.Gauge
}

// newElectionMetrics registers the election collectors with reg. A nil reg
// leaves them unregistered.
func newElectionMetrics(reg prometheus.Registerer, cfg Config) *electionMetrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{
		"election":    cfg.ElectionNamespace,
		"participant": cfg.ParticipantID,
	}
	return &electionMetrics{
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "zkelection",
			Subsystem:   "candidate",
			Name:        "registrations_total",
			Help:        "Total number of candidate nodes created",
			ConstLabels: labels,
		}),
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "zkelection",
			Subsystem:   "election",
			Name:        "evaluations_total",
			Help:        "Total number of evaluation passes by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "zkelection",
			Subsystem:   "router",
			Name:        "events_total",
			Help:        "Total number of routed watch notifications by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		leader: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "zkelection",
			Subsystem:   "election",
			Name:        "is_leader",
			Help:        "1 while this participant is the leader",
			ConstLabels: labels,
		}),
	}
}

func (m *electionMetrics) evaluation(outcome string) {
	m.evaluations.WithLabelValues(outcome).Inc()
}

func (m *electionMetrics) event(kind EventKind) {
	m.events.WithLabelValues(kind.String()).Inc()
}

func (m *electionMetrics) role(role ParticipantRole) {
	if role.IsLeader() {
		m.leader.Set(1)
		return
	}
	m.leader.Set(0)
}
