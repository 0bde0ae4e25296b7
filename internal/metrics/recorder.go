package metrics

import (
	"foodshare/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts domain events: claims by path and sweeper expirations.
type Recorder struct {
	claims      *prometheus.CounterVec
	expirations prometheus.Counter
}

// NewRecorder registers the domain counters on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		claims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donation_claims_total",
				Help: "Donations moved to claimed, by claim path.",
			},
			[]string{"via"},
		),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "donation_expirations_total",
			Help: "Donations flagged expired by the sweeper.",
		}),
	}

	for _, c := range []prometheus.Collector{r.claims, r.expirations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Claimed(via model.ClaimVia) {
	if r == nil {
		return
	}
	r.claims.WithLabelValues(string(via)).Inc()
}

func (r *Recorder) Expired(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.expirations.Add(float64(n))
}
