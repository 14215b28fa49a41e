// Package metrics exports sync session measurements as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace         = "imgupd"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 2 * time.Second
)

// Recorder implements syncengine.Recorder on its own Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	entriesTotal     *prometheus.CounterVec
	bytesTransferred prometheus.Counter
	transferDuration prometheus.Histogram
	foldersFailed    prometheus.Counter
	inFlight         prometheus.Gauge
	ceiling          prometheus.Gauge
	delay            prometheus.Gauge
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		entriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_total",
				Help:      "Entries accounted for, by outcome",
			},
			[]string{"outcome"},
		),
		bytesTransferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_transferred_total",
			Help:      "Bytes written to local storage",
		}),
		transferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Time taken by each transfer, including the retry",
			Buckets:   prometheus.DefBuckets,
		}),
		foldersFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_failed_total",
			Help:      "Folders abandoned because they could not be listed",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transfers_in_flight",
			Help:      "Transfers currently running",
		}),
		ceiling: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throttle_ceiling",
			Help:      "Current maximum number of concurrent transfers",
		}),
		delay: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throttle_delay_seconds",
			Help:      "Current pause between dispatches",
		}),
	}
}

// EntryAccounted records one entry. Skipped entries have no duration.
func (r *Recorder) EntryAccounted(outcome string, bytes int64, elapsed time.Duration) {
	r.entriesTotal.WithLabelValues(outcome).Inc()

	if bytes > 0 {
		r.bytesTransferred.Add(float64(bytes))
	}

	if elapsed > 0 {
		r.transferDuration.Observe(elapsed.Seconds())
	}
}

// FolderFailed records an abandoned folder.
func (r *Recorder) FolderFailed() {
	r.foldersFailed.Inc()
}

// InFlight records the number of running transfers.
func (r *Recorder) InFlight(n int) {
	r.inFlight.Set(float64(n))
}

// ThrottleAdjusted records the current ceiling and delay.
func (r *Recorder) ThrottleAdjusted(ceiling int, delay time.Duration) {
	r.ceiling.Set(float64(ceiling))
	r.delay.Set(delay.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", listener.Addr().String()))

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}

	return nil
}
