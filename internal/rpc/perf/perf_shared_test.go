//go:build perf || perf_large

package perf

import (
	"context"
	"testing"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/internal/rpc"
	"github.com/signalsfoundry/propagation-tool/model"
)

type perfConfig struct {
	// DistanceStep sets the density of a 100 m to 40 km distance grid.
	DistanceStep float64
	// HeightStep sets the density of a 1 to 80 m height grid.
	HeightStep float64
	Workers    int
}

func perfLink() rpc.Link {
	return rpc.Link{LinkConfig: model.LinkConfig{
		FrequencyHz:       100e6,
		TxPowerW:          10,
		Conductivity:      0.01,
		Permittivity:      15,
		RoughnessM:        0.1,
		Antenna:           model.Isotropic,
		Polarization:      model.Horizontal,
		EarthRadiusFactor: 1.3333,
	}}
}

func benchmarkDistanceSweep(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	svc := rpc.NewService(nil, logging.Noop(), rpc.WithSweepOptions(core.SweepOptions{Workers: cfg.Workers}))
	req := &rpc.DistanceSweepRequest{
		Link:  perfLink(),
		Sweep: core.DistanceSweepRequest{TxHeight: 15, RxHeight: 40, Start: 100, End: 40000, Step: cfg.DistanceStep},
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := svc.SweepDistance(ctx, req); err != nil {
			b.Fatalf("SweepDistance: %v", err)
		}
	}
}

func benchmarkCalculate(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	svc := rpc.NewService(nil, logging.Noop(), rpc.WithSweepOptions(core.SweepOptions{Workers: cfg.Workers}))
	req := &rpc.CalculateRequest{
		Link: perfLink(),
		Calculation: core.CalculationRequest{
			TxHeight:     15,
			RxHeight:     40,
			DistanceEnd:  40000,
			DistanceStep: cfg.DistanceStep,
			HeightEnd:    80,
			HeightStep:   cfg.HeightStep,
		},
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Calculate(ctx, req); err != nil {
			b.Fatalf("Calculate: %v", err)
		}
	}
}
