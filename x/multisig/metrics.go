package multisig

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts proposal activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	created     *prometheus.CounterVec
	signatures  *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers the proposal counters with given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		created: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosign",
			Subsystem: "proposal",
			Name:      "created_total",
			Help:      "Number of created proposals",
		}, []string{"kind"}),
		signatures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosign",
			Subsystem: "proposal",
			Name:      "signatures_total",
			Help:      "Number of signatures offered to proposals, by result",
		}, []string{"result"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosign",
			Subsystem: "proposal",
			Name:      "transitions_total",
			Help:      "Number of proposal status changes, by new status",
		}, []string{"status"}),
	}
}

func (m *Metrics) proposalCreated(kind TxKind) {
	if m != nil {
		m.created.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) signatureAdded(err error) {
	if m == nil {
		return
	}
	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	m.signatures.WithLabelValues(result).Inc()
}

func (m *Metrics) transitioned(to ProposalStatus) {
	if m != nil {
		m.transitions.WithLabelValues(to.String()).Inc()
	}
}
