package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration review pipeline.
type Metrics struct {
	Created     prometheus.Counter
	Recommended prometheus.Counter
	Approved    prometheus.Counter
	Rejected    prometheus.Counter
	// BypassApprovals counts direct approvals from manager review, the
	// audited administrator shortcut.
	BypassApprovals prometheus.Counter
}

// New creates a Metrics instance with all registration metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_registrations_created_total",
			Help: "Total registrations created via signup",
		}),
		Recommended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_registrations_recommended_total",
			Help: "Total registrations recommended by a manager",
		}),
		Approved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_registrations_approved_total",
			Help: "Total registrations approved by an administrator",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_registrations_rejected_total",
			Help: "Total registrations rejected at either review stage",
		}),
		BypassApprovals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_registrations_bypass_approvals_total",
			Help: "Total approvals taken directly from manager review",
		}),
	}
}
