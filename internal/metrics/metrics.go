// internal/metrics/metrics.go
// Package metrics exposes capture session measurements to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Session outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

// Collector holds the session collectors on its own registry.
// All methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	sessions        *prometheus.CounterVec // by outcome
	classifications *prometheus.CounterVec // by shape
	amplitude       prometheus.Gauge       // last calibrated amplitude
	frequency       prometheus.Gauge       // last frequency estimate, 0 when unavailable
	samples         prometheus.Gauge       // length of the last captured sequence
	bufferFull      prometheus.Counter
	samplerErrors   prometheus.Counter
	acquisition     prometheus.Histogram
}

// New creates and registers all collectors
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waveprobe_sessions_total",
				Help: "Capture sessions finished, by outcome",
			},
			[]string{"outcome"},
		),
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waveprobe_classifications_total",
				Help: "Waveform classifications, by detected shape",
			},
			[]string{"shape"},
		),
		amplitude: factory.NewGauge(prometheus.GaugeOpts{
			Name: "waveprobe_amplitude_volts",
			Help: "Peak-to-peak amplitude of the last calibration in volts",
		}),
		frequency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "waveprobe_frequency_hz",
			Help: "Last frequency estimate in Hz (0 when unavailable)",
		}),
		samples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "waveprobe_samples_captured",
			Help: "Number of samples in the last captured sequence",
		}),
		bufferFull: factory.NewCounter(prometheus.CounterOpts{
			Name: "waveprobe_buffer_full_total",
			Help: "Sessions whose sample buffer reached its ceiling",
		}),
		samplerErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "waveprobe_sampler_errors_total",
			Help: "Sampler read failures that aborted a session",
		}),
		acquisition: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "waveprobe_acquisition_seconds",
			Help:    "Time spent in the acquisition loop per session",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// Registry returns the registry backing the collectors
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// SessionFinished counts one session with the given outcome.
func (c *Collector) SessionFinished(outcome string) {
	if c == nil {
		return
	}
	c.sessions.WithLabelValues(outcome).Inc()
}

// Classified counts one classification result.
func (c *Collector) Classified(shape string) {
	if c == nil {
		return
	}
	c.classifications.WithLabelValues(shape).Inc()
}

// Measured records the calibration amplitude and frequency estimate.
func (c *Collector) Measured(amplitude, frequency float64, frequencyOK bool) {
	if c == nil {
		return
	}
	c.amplitude.Set(amplitude)
	if !frequencyOK {
		frequency = 0
	}
	c.frequency.Set(frequency)
}

// Captured records the captured sequence length and the full flag.
func (c *Collector) Captured(length int, full bool) {
	if c == nil {
		return
	}
	c.samples.Set(float64(length))
	if full {
		c.bufferFull.Inc()
	}
}

// SamplerError counts a fatal read failure
func (c *Collector) SamplerError() {
	if c == nil {
		return
	}
	c.samplerErrors.Inc()
}

// ObserveAcquisition records how long the acquisition loop ran
func (c *Collector) ObserveAcquisition(d time.Duration) {
	if c == nil {
		return
	}
	c.acquisition.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
