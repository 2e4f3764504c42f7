package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincast",
			Subsystem: "batch",
			Name:      "cache_hits_total",
			Help:      "Forecast result cache hits and misses",
		},
		[]string{"result"},
	)

	JobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincast",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Asynchronous forecast jobs by final state",
		},
		[]string{"state"},
	)
)

// Register adds the collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(CacheHits, JobsFinished)
	})
}
