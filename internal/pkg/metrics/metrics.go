// Package metrics exposes Prometheus collectors for the balance engine and
// a small HTTP listener serving /metrics and /healthz.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operations counts engine operations by operation name and result
// (ok, invalid_state, invalid_amount, insufficient_funds, not_found,
// ambiguous, conflict, error).
var Operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "balance_engine",
	Name:      "operations_total",
	Help:      "Engine operations by operation and result.",
}, []string{"operation", "result"})

// BalanceMutations observes absolute balance deltas in minor currency units.
var BalanceMutations = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "balance_engine",
	Name:      "balance_mutation_amount",
	Help:      "Absolute balance mutation amounts in minor currency units.",
	Buckets:   prometheus.ExponentialBuckets(1000, 10, 6),
}, []string{"type"})

// HealthFunc reports store health for the /healthz endpoint.
type HealthFunc func(ctx context.Context) error

// StartServer starts a lightweight HTTP server for /metrics and /healthz in
// a background goroutine and returns it for shutdown. Extra handlers (debug
// or invariant-check endpoints) are mounted by path.
func StartServer(addr string, healthFn HealthFunc, extra map[string]http.Handler) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	for path, h := range extra {
		mux.Handle(path, h)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
