package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus instruments.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Flushes     prometheus.Counter
	Reveals     prometheus.Counter
	Swaps       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "icpcboard_submissions_total",
			Help: "Submissions ingested, by outcome.",
		}, []string{"outcome"}),
		Flushes: f.NewCounter(prometheus.CounterOpts{
			Name: "icpcboard_flushes_total",
			Help: "Explicit scoreboard recomputations.",
		}),
		Reveals: f.NewCounter(prometheus.CounterOpts{
			Name: "icpcboard_reveals_total",
			Help: "Frozen problems revealed during scrolls.",
		}),
		Swaps: f.NewCounter(prometheus.CounterOpts{
			Name: "icpcboard_rank_swaps_total",
			Help: "Rank swaps reported during scrolls.",
		}),
	}
}
