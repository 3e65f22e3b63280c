// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// SessionsCreated counts sessions admitted past the exclusivity
	// check, by payment method.
	SessionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washpoint_sessions_created_total",
			Help: "Total usage sessions created",
		},
		[]string{"method"},
	)

	// SessionActivations counts activation outcomes.
	SessionActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washpoint_session_activations_total",
			Help: "Total machine activation attempts by outcome",
		},
		[]string{"result"},
	)

	// SessionTransitions counts sessions entering each terminal state.
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washpoint_session_transitions_total",
			Help: "Total session transitions by target status",
		},
		[]string{"to"},
	)

	// DependencyAttempts counts individual calls to external
	// dependencies, retries included.
	DependencyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "washpoint_dependency_attempts_total",
			Help: "Total calls to external dependencies including retries",
		},
		[]string{"dependency"},
	)

	// RefundsTotal counts compensating refunds issued.
	RefundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "washpoint_refunds_total",
			Help: "Total compensating refunds issued",
		},
	)

	// CircuitState reports each breaker's state
	// (0 closed, 1 open, 2 half-open).
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "washpoint_circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
		},
		[]string{"dependency"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		SessionsCreated,
		SessionActivations,
		SessionTransitions,
		DependencyAttempts,
		RefundsTotal,
		CircuitState,
	)
}

// Serve starts the metrics endpoint on addr. It blocks until the
// server fails.
func Serve(addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv.ListenAndServe()
}
