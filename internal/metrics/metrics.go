// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pension_calculations_total",
		Help: "Calculation requests processed, by outcome.",
	}, []string{"outcome"})

	CalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pension_calculation_duration_seconds",
		Help:    "Wall time spent processing one calculation batch.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	SchemeLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pension_scheme_lookups_total",
		Help: "Accrual-rate resolutions, by result (hit, fetched, defaulted).",
	}, []string{"result"})
)
