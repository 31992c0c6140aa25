// Package metrics exposes Prometheus collectors for backend requests and calendar syncs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vrcal"

// Metrics owns a private registry so several instances can coexist.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	syncedEvents    *prometheus.CounterVec
	lastSync        prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Backend API requests by status code and method",
	}, []string{"code", "method"})
	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Backend API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	m.syncedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "synced_events_total",
		Help:      "Events pushed to calendar targets by result",
	}, []string{"target", "result"})
	m.lastSync = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the last finished sync cycle",
	})

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.syncedEvents, m.lastSync)
	return m
}

// InstrumentRoundTripper counts and times every request sent through next.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(m.requestsTotal,
		promhttp.InstrumentRoundTripperDuration(m.requestDuration, next))
}

// ObserveSync records the outcome of pushing one event to target.
func (m *Metrics) ObserveSync(target string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.syncedEvents.WithLabelValues(target, result).Inc()
}

// MarkSyncFinished stamps the end of a sync cycle.
func (m *Metrics) MarkSyncFinished(t time.Time) {
	m.lastSync.Set(float64(t.Unix()))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics and /healthz on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
