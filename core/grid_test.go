package core

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestGridIsInclusiveAndIndexed(t *testing.T) {
	seq, err := Grid(1000, 40000, 1000)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	got := slices.Collect(seq)
	if len(got) != 40 {
		t.Fatalf("len = %d, want 40", len(got))
	}
	if got[0] != 1000 || got[39] != 40000 {
		t.Fatalf("bounds = %v..%v", got[0], got[39])
	}

	// 0.1 steps accumulate error when summed; indexed values keep the end.
	seq, _ = Grid(0.1, 1.0, 0.1)
	fine := slices.Collect(seq)
	if len(fine) != 10 {
		t.Fatalf("fine grid len = %d, want 10", len(fine))
	}
	if math.Abs(fine[9]-1.0) > 1e-12 {
		t.Fatalf("fine grid end = %v", fine[9])
	}
}

func TestGridRestartableAndSinglePoint(t *testing.T) {
	seq, err := Grid(5, 5, 1)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	for i := 0; i < 2; i++ {
		if got := slices.Collect(seq); len(got) != 1 || got[0] != 5 {
			t.Fatalf("pass %d: got %v", i, got)
		}
	}
}

func TestGridStopsEarly(t *testing.T) {
	seq, _ := Grid(1, 100, 1)
	count := 0
	for v := range seq {
		count++
		if v >= 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("visited %d values, want 3", count)
	}
}

func TestGridRejectsBadAxes(t *testing.T) {
	for _, in := range [][3]float64{
		{1, 10, 0},
		{1, 10, -1},
		{0, 10, 1},
		{10, 1, 1},
		{1, math.Inf(1), 1},
		{1, 1e12, 1},
	} {
		if _, err := Grid(in[0], in[1], in[2]); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("Grid(%v) = %v, want ErrInvalidParameter", in, err)
		}
	}
}

func TestBelowHorizonFilters(t *testing.T) {
	seq, _ := Grid(1, 10, 1)
	got := slices.Collect(BelowHorizon(seq, 4))
	if !slices.Equal(got, []float64{1, 2, 3}) {
		t.Fatalf("BelowHorizon = %v", got)
	}
}
