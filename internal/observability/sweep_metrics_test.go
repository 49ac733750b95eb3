package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/model"
)

func TestSweepCollectorCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSweepCollector(reg)
	if err != nil {
		t.Fatalf("NewSweepCollector: %v", err)
	}

	collector.ObservePoint(core.KindDistance, core.OutcomeEmitted)
	collector.ObservePoint(core.KindDistance, core.OutcomeEmitted)
	collector.ObservePoint(core.KindHeight, core.OutcomeBeyondHorizon)
	collector.ObserveSweep(core.KindDistance, 3*time.Millisecond, 2, 0)

	if got := testutil.ToFloat64(collector.Points.WithLabelValues("distance", "emitted")); got != 2 {
		t.Fatalf("emitted distance points = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Points.WithLabelValues("height", "beyond_horizon")); got != 1 {
		t.Fatalf("beyond-horizon height points = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "propagation_sweep_duration_seconds", map[string]string{"kind": "distance"}); count != 1 {
		t.Fatalf("sweep duration sample_count = %d, want 1", count)
	}
}

func TestSweepCollectorObservesRealSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSweepCollector(reg)
	if err != nil {
		t.Fatalf("NewSweepCollector: %v", err)
	}
	p, err := model.NewLinkParameters(model.LinkConfig{
		FrequencyHz: 100e6, TxPowerW: 10, Conductivity: 0.01, Permittivity: 15, RoughnessM: 0.1,
		Antenna: model.Isotropic, Polarization: model.Horizontal, EarthRadiusFactor: 1.3333,
	})
	if err != nil {
		t.Fatalf("NewLinkParameters: %v", err)
	}

	_, err = core.SweepDistance(context.Background(), p, core.DistanceSweepRequest{
		TxHeight: 10, RxHeight: 10, Start: 1000, End: 40000, Step: 1000,
	}, core.SweepOptions{Workers: 4, Observer: collector})
	if err != nil {
		t.Fatalf("SweepDistance: %v", err)
	}

	if got := testutil.ToFloat64(collector.Points.WithLabelValues("distance", "emitted")); got != 26 {
		t.Fatalf("emitted = %v, want 26", got)
	}
	if got := testutil.ToFloat64(collector.Points.WithLabelValues("distance", "beyond_horizon")); got != 14 {
		t.Fatalf("beyond horizon = %v, want 14", got)
	}
}

func TestNilSweepCollectorIsSafe(t *testing.T) {
	var c *SweepCollector
	c.ObservePoint(core.KindHeight, core.OutcomeFailed)
	c.ObserveSweep(core.KindHeight, time.Second, 0, 0)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector gatherer should be nil")
	}
}
