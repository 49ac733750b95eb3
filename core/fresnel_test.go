package core

import (
	"math"
	"testing"
)

func TestFresnelClearanceKnownCounts(t *testing.T) {
	p := scenarioParams(t)
	cases := []struct {
		ht, hr, r float64
		want      int
	}{
		{10, 10, 5000, 0},
		{100, 100, 5000, 2},
		{100, 100, 1000, 13},
		{200, 200, 1000, 53},
		{50, 200, 10000, 1},
	}
	for _, tc := range cases {
		got, ok, err := FresnelClearance(tc.ht, tc.hr, tc.r, p)
		if err != nil || !ok {
			t.Fatalf("FresnelClearance(%v,%v,%v): ok=%v err=%v", tc.ht, tc.hr, tc.r, ok, err)
		}
		if got != tc.want {
			t.Errorf("FresnelClearance(%v,%v,%v) = %d, want %d", tc.ht, tc.hr, tc.r, got, tc.want)
		}
	}
}

// The count must match the zone-by-zone search it replaces.
func TestClearedZonesMatchesIterativeSearch(t *testing.T) {
	p := scenarioParams(t)
	lambda := p.Wavelength()
	for _, in := range [][3]float64{{10, 10, 800}, {30, 80, 4000}, {150, 20, 2500}, {300, 300, 700}} {
		g, ok, err := SolveGeometry(in[0], in[1], in[2], scenarioK)
		if err != nil || !ok {
			t.Fatalf("SolveGeometry(%v): ok=%v err=%v", in, ok, err)
		}
		hp := ClearanceHeight(g)
		c := lambda * g.GroundTx * g.GroundRx / (g.GroundTx + g.GroundRx)
		want := 0
		for hp >= math.Sqrt(float64(want+1)*c) {
			want++
		}
		if got := clearedZones(g, lambda); got != want {
			t.Errorf("clearedZones(%v) = %d, iterative %d", in, got, want)
		}
	}
}

func TestFresnelClearanceNonIncreasingWithDistance(t *testing.T) {
	p := scenarioParams(t)
	prev := -1
	for r := 20000.0; r >= 100; r -= 100 {
		n, ok, err := FresnelClearance(100, 100, r, p)
		if err != nil || !ok {
			t.Fatalf("FresnelClearance(r=%v): ok=%v err=%v", r, ok, err)
		}
		if n < 0 {
			t.Fatalf("negative zone count %d", n)
		}
		if n < prev {
			t.Fatalf("zone count dropped from %d to %d as r shrank to %v", prev, n, r)
		}
		prev = n
	}
}

func TestFresnelClearanceUndefinedBeyondHorizon(t *testing.T) {
	p := scenarioParams(t)
	n, ok, err := FresnelClearance(10, 10, 35000, p)
	if err != nil || ok || n != 0 {
		t.Fatalf("FresnelClearance at 35 km = %d, ok=%v, err=%v", n, ok, err)
	}
}

func TestClearedZonesNegativeClearance(t *testing.T) {
	g := ReflectionGeometry{TxHeight: 1, RxHeight: 1, Distance: 20000, GroundTx: 10000, GroundRx: 10000, EffectiveRadius: 6371e3}
	if hp := ClearanceHeight(g); hp >= 0 {
		t.Fatalf("expected negative clearance height, got %v", hp)
	}
	if n := clearedZones(g, 3); n != 0 {
		t.Fatalf("negative clearance zones = %d, want 0", n)
	}
}
