// Package metrics exposes the coach loop counters to prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/pose"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame counters
	FramesCaptured atomic.Uint64
	FramesDropped  atomic.Uint64
	Cycles         atomic.Uint64

	// Calibration counters
	CalibrationAdmitted atomic.Uint64
	CalibrationRejected atomic.Uint64
	TrackedFrames       atomic.Uint64
	Calibrated          atomic.Uint64 // 0 = calibrating, 1 = tracking

	// Remap counters
	Remaps atomic.Uint64

	cycleSeconds *prometheus.HistogramVec
	skips        *prometheus.CounterVec
	errors       *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ coach.Metrics = &Metrics{} // Compile-time check

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		val  *atomic.Uint64
	}{
		{"fitcoach_frames_captured_total", "Total frames read from the camera", &m.FramesCaptured},
		{"fitcoach_frames_dropped_total", "Total frames dropped while the loop was busy", &m.FramesDropped},
		{"fitcoach_cycles_total", "Total loop cycles", &m.Cycles},
		{"fitcoach_calibration_admitted_total", "Calibration frames admitted", &m.CalibrationAdmitted},
		{"fitcoach_calibration_rejected_total", "Calibration frames rejected by the gate", &m.CalibrationRejected},
		{"fitcoach_tracked_frames_total", "Frames pushed to the tracking buffer", &m.TrackedFrames},
		{"fitcoach_calibrated", "1 once calibration is complete", &m.Calibrated},
		{"fitcoach_remaps_total", "Trainer overlays drawn", &m.Remaps},
	}
	for _, g := range gauges {
		val := g.val
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(val.Load()) },
		))
	}

	m.cycleSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitcoach_cycle_seconds",
		Help:    "Loop cycle processing time",
		Buckets: []float64{.005, .01, .02, .033, .05, .1, .25, .5, 1},
	}, []string{"mode"})
	m.skips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcoach_remap_skips_total",
		Help: "Trainer overlays skipped, by reason",
	}, []string{"reason"})
	m.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcoach_errors_total",
		Help: "Errors by stage",
	}, []string{"stage"})
	m.registry.MustRegister(m.cycleSeconds, m.skips, m.errors)
}

func (m *Metrics) ObserveCycle(mode coach.Mode, elapsed time.Duration) {
	m.Cycles.Add(1)
	m.cycleSeconds.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCalibration(obs coach.Observation) {
	switch {
	case obs.Tracked:
		m.TrackedFrames.Add(1)
	case obs.Admitted:
		m.CalibrationAdmitted.Add(1)
	case obs.Rejected:
		m.CalibrationRejected.Add(1)
	}
	if obs.Completed {
		m.Calibrated.Store(1)
	}
}

func (m *Metrics) ObserveRemap(err error) {
	if err == nil {
		m.Remaps.Add(1)
		return
	}
	m.skips.WithLabelValues(SkipReason(err)).Inc()
}

func (m *Metrics) ObserveError(stage string) {
	m.errors.WithLabelValues(stage).Inc()
}

// SkipReason maps a remap error to a short label.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, pose.ErrReferenceAnchorMissing):
		return "reference_anchor"
	case errors.Is(err, pose.ErrUserAnchorMissing):
		return "user_anchor"
	case errors.Is(err, pose.ErrUserSegmentMissing):
		return "user_segment"
	case errors.Is(err, pose.ErrReferenceSegment):
		return "reference_segment"
	case errors.Is(err, pose.ErrInvalidScale):
		return "invalid_scale"
	default:
		return "other"
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lgr.Logger.Info("metrics server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
