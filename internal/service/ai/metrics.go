package ai

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce      sync.Once
	generationsTotal *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildlog",
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "AI helper calls by kind and outcome",
		}, []string{"kind", "status"})
		if err := prometheus.Register(counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					counter = existing
				}
			}
		}
		generationsTotal = counter
	})
}

func recordGeneration(kind string, status Status) {
	if generationsTotal == nil {
		return
	}
	generationsTotal.WithLabelValues(kind, string(status)).Inc()
}
