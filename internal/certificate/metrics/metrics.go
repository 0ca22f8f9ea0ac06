// Package metrics exposes prometheus counters for certificate issuance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the issuance coordinator.
type Metrics struct {
	Issued             prometheus.Counter
	Regenerated        prometheus.Counter
	Revoked            prometheus.Counter
	GenerationFailures prometheus.Counter
}

// New creates a Metrics instance with all certificate metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_certificates_issued_total",
			Help: "Total certificates issued, first issuances only",
		}),
		Regenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_certificates_regenerated_total",
			Help: "Total certificates reissued over an existing one",
		}),
		Revoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_certificates_revoked_total",
			Help: "Total certificates revoked",
		}),
		GenerationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdant_certificates_generation_failures_total",
			Help: "Total document generation failures during issuance",
		}),
	}
}
