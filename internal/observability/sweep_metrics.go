package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/propagation-tool/core"
)

// SweepCollector exposes sweep metrics and satisfies core.SweepObserver.
type SweepCollector struct {
	gatherer prometheus.Gatherer

	Points        *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
	SweepSamples  *prometheus.HistogramVec
}

var _ core.SweepObserver = (*SweepCollector)(nil)

// NewSweepCollector registers sweep metrics against the provided registerer.
func NewSweepCollector(reg prometheus.Registerer) (*SweepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propagation_sweep_points_total",
		Help: "Sweep sample points, labeled by sweep kind and outcome (emitted, beyond_horizon, failed).",
	}, []string{"kind", "outcome"})
	points, err := registerCounterVec(reg, points, "propagation_sweep_points_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propagation_sweep_duration_seconds",
		Help:    "Wall time of a complete sweep.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"})
	duration, err = registerHistogramVec(reg, duration, "propagation_sweep_duration_seconds")
	if err != nil {
		return nil, err
	}

	samples := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propagation_sweep_emitted_samples",
		Help:    "Number of samples a sweep emitted after horizon filtering.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"kind"})
	samples, err = registerHistogramVec(reg, samples, "propagation_sweep_emitted_samples")
	if err != nil {
		return nil, err
	}

	return &SweepCollector{
		gatherer:      gatherer,
		Points:        points,
		SweepDuration: duration,
		SweepSamples:  samples,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SweepCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePoint counts one sample.
func (c *SweepCollector) ObservePoint(kind core.SweepKind, outcome core.PointOutcome) {
	if c == nil || c.Points == nil {
		return
	}
	c.Points.WithLabelValues(string(kind), string(outcome)).Inc()
}

// ObserveSweep records the duration and emitted size of a finished sweep.
func (c *SweepCollector) ObserveSweep(kind core.SweepKind, elapsed time.Duration, emitted, _ int) {
	if c == nil {
		return
	}
	if c.SweepDuration != nil {
		c.SweepDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	}
	if c.SweepSamples != nil {
		c.SweepSamples.WithLabelValues(string(kind)).Observe(float64(emitted))
	}
}
