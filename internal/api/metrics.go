package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is the server's instrumentation. Each server carries its own
// registry so parallel instances never clash on registration.
type metrics struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	crafts       prometheus.Counter
	choices      *prometheus.CounterVec
	engineFaults prometheus.Counter
	genSeconds   prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bard_turns_total",
			Help: "Scene turns produced, by kind.",
		}, []string{"kind"}),
		crafts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bard_crafts_total",
			Help: "Crafting results produced.",
		}),
		choices: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bard_choices_total",
			Help: "Constrained choice outcomes.",
		}, []string{"outcome"}),
		engineFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "bard_engine_faults_total",
			Help: "Engine failures surfaced as server errors.",
		}),
		genSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bard_generation_seconds",
			Help:    "Wall time of engine generation runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
