package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Upload outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Uploads counts upload-and-handoff runs by outcome.
// A nil *Uploads is valid and records nothing.
type Uploads struct {
	total *prometheus.CounterVec
}

// NewUploads creates the meetnote_uploads_total counter and registers it on reg.
func NewUploads(reg prometheus.Registerer) (*Uploads, error) {
	u := &Uploads{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetnote_uploads_total",
				Help: "Total number of recording uploads by outcome.",
			},
			[]string{"outcome"},
		),
	}
	if err := reg.Register(u.total); err != nil {
		return nil, err
	}
	for _, o := range []string{OutcomeSuccess, OutcomePartial, OutcomeFailed} {
		u.total.WithLabelValues(o)
	}
	return u, nil
}

// Observe increments the counter for outcome.
func (u *Uploads) Observe(outcome string) {
	if u == nil {
		return
	}
	u.total.WithLabelValues(outcome).Inc()
}
