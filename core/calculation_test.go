package core

import (
	"context"
	"testing"
)

func TestCalculateThreadsMaxDistanceIntoHeightSweep(t *testing.T) {
	p := scenarioParams(t)
	calc, err := Calculate(context.Background(), p, CalculationRequest{
		TxHeight:      10,
		RxHeight:      10,
		DistanceStart: 1000,
		DistanceEnd:   40000,
		DistanceStep:  1000,
		HeightStep:    1,
	}, SweepOptions{Workers: 4})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if calc.State.MaxDistance != 26000 || !calc.State.HasSamples {
		t.Fatalf("state = %+v", calc.State)
	}
	if calc.Height.Distance != 26000 {
		t.Fatalf("height sweep distance = %v, want 26000", calc.Height.Distance)
	}
	// The receiver moves over [1, 20]; only heights whose horizon exceeds
	// 26 km survive.
	if len(calc.Height.Samples) != 11 || calc.Height.Samples[0].Height != 10 {
		t.Fatalf("height samples = %d starting at %v", len(calc.Height.Samples), firstHeight(calc.Height))
	}
	if calc.Link != p.Config() {
		t.Fatalf("calculation link config mismatch")
	}
}

func TestCalculateVaryTxSweepsTwiceTxHeight(t *testing.T) {
	calc, err := Calculate(context.Background(), scenarioParams(t), CalculationRequest{
		TxHeight:      10,
		RxHeight:      100,
		DistanceStart: 1000,
		DistanceEnd:   5000,
		DistanceStep:  1000,
		HeightStep:    1,
		VaryTx:        true,
	}, SweepOptions{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	samples := calc.Height.Samples
	if got := len(samples) + calc.Height.Dropped; got != 20 {
		t.Fatalf("height grid = %d points, want 20", got)
	}
	last := samples[len(samples)-1]
	if last.Height != 20 || last.TxHeight != 20 || last.RxHeight != 100 {
		t.Fatalf("last sample = %+v, want tx 20 rx 100", last)
	}
}

func TestCalculateWithoutDistanceSamples(t *testing.T) {
	p := scenarioParams(t)
	calc, err := Calculate(context.Background(), p, CalculationRequest{
		TxHeight: 10, RxHeight: 10,
		DistanceStart: 30000, DistanceEnd: 35000, DistanceStep: 1000,
		HeightStep: 1,
	}, SweepOptions{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if calc.State.HasSamples || len(calc.Height.Samples) != 0 {
		t.Fatalf("expected empty height sweep, got %+v", calc.Height)
	}
}

func TestCalculationRequestHeightRange(t *testing.T) {
	start, end := CalculationRequest{TxHeight: 12, RxHeight: 30}.HeightRange()
	if start != 1 || end != 60 {
		t.Fatalf("default range = [%v, %v], want [1, 60]", start, end)
	}
	start, end = CalculationRequest{TxHeight: 10, RxHeight: 100, VaryTx: true}.HeightRange()
	if start != 1 || end != 20 {
		t.Fatalf("vary-tx default range = [%v, %v], want [1, 20]", start, end)
	}
	start, end = CalculationRequest{TxHeight: 100, RxHeight: 10}.HeightRange()
	if start != 1 || end != 20 {
		t.Fatalf("vary-rx default range = [%v, %v], want [1, 20]", start, end)
	}
	start, end = CalculationRequest{TxHeight: 12, RxHeight: 30, HeightStart: 5, HeightEnd: 9}.HeightRange()
	if start != 5 || end != 9 {
		t.Fatalf("explicit range = [%v, %v]", start, end)
	}
}

func firstHeight(s HeightSweep) float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	return s.Samples[0].Height
}
