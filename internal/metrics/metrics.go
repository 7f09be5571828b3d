// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records upstream request and enrichment statistics in a
// private Prometheus registry and optionally serves them over HTTP.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "pdbtracker"

// Recorder owns the pipeline's metric vectors.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	enrichFailures    *prometheus.CounterVec
	discoveredTotal   prometheus.Counter
	recordsTotal      prometheus.Counter
	duplicatesRemoved prometheus.Counter
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Upstream HTTP requests by service and status code.",
			},
			[]string{"service", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream HTTP request duration including retries and throttle waits.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service"},
		),
		enrichFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_failures_total",
				Help:      "Identifiers whose enrichment stage degraded.",
			},
			[]string{"stage"},
		),
		discoveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovered_identifiers_total",
			Help:      "Unique identifiers returned by discovery.",
		}),
		recordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Enrichment records produced.",
		}),
		duplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_identifiers_total",
			Help:      "Duplicate identifiers dropped before enrichment.",
		}),
	}
	r.registry.MustRegister(
		r.requestsTotal,
		r.requestDuration,
		r.enrichFailures,
		r.discoveredTotal,
		r.recordsTotal,
		r.duplicatesRemoved,
	)
	return r
}

// Registry exposes the underlying registry (tests, custom exporters).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest records one upstream request. code is 0 for transport failures.
func (r *Recorder) ObserveRequest(service string, code int, d time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	r.requestsTotal.WithLabelValues(service, label).Inc()
	r.requestDuration.WithLabelValues(service).Observe(d.Seconds())
}

// EnrichmentFailure counts one degraded stage.
func (r *Recorder) EnrichmentFailure(stage string) {
	if r == nil {
		return
	}
	r.enrichFailures.WithLabelValues(stage).Inc()
}

// Discovered records the size of a discovery result.
func (r *Recorder) Discovered(unique, duplicates int) {
	if r == nil {
		return
	}
	r.discoveredTotal.Add(float64(unique))
	r.duplicatesRemoved.Add(float64(duplicates))
}

// RecordProduced counts one enrichment record.
func (r *Recorder) RecordProduced() {
	if r == nil {
		return
	}
	r.recordsTotal.Inc()
}

// Handler returns a router serving /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return router
}

// Serve runs the metrics endpoint on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
