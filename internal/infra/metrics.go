package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors exposed on /metrics.
var (
	CambiosConfirmados = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambios",
		Name:      "confirmados_total",
		Help:      "Settlement submissions by outcome.",
	}, []string{"resultado"})

	RetailLatencia = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cambios",
		Name:      "retail_request_seconds",
		Help:      "Latency of retail API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operacion", "estado"})

	RetailCircuito = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cambios",
		Name:      "retail_circuit_state",
		Help:      "Retail API circuit breaker state (0 closed, 1 open, 2 half-open).",
	})

	JobsProcesados = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambios",
		Name:      "jobs_total",
		Help:      "Background jobs by type and outcome.",
	}, []string{"tipo", "estado"})
)
