package core

import (
	"fmt"
	"iter"
	"math"
)

// MaxGridPoints bounds the number of samples a single axis may request.
const MaxGridPoints = 1_000_000

// gridSlack absorbs rounding when the last step lands on end.
const gridSlack = 1e-9

// Grid returns the inclusive sample axis start, start+step, … ≤ end. Values
// are computed by index so rounding does not accumulate. The sequence can be
// ranged over any number of times.
func Grid(start, end, step float64) (iter.Seq[float64], error) {
	n, err := gridLen(start, end, step)
	if err != nil {
		return nil, err
	}
	return func(yield func(float64) bool) {
		for i := 0; i < n; i++ {
			if !yield(start + float64(i)*step) {
				return
			}
		}
	}, nil
}

// BelowHorizon filters seq to values strictly less than horizon.
func BelowHorizon(seq iter.Seq[float64], horizon float64) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for v := range seq {
			if v >= horizon {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

func gridLen(start, end, step float64) (int, error) {
	for _, v := range []float64{start, end, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: grid bounds must be finite (start=%v end=%v step=%v)", ErrInvalidParameter, start, end, step)
		}
	}
	if step <= 0 {
		return 0, fmt.Errorf("%w: grid step must be > 0, got %v", ErrInvalidParameter, step)
	}
	if start <= 0 {
		return 0, fmt.Errorf("%w: grid start must be > 0, got %v", ErrInvalidParameter, start)
	}
	if end < start {
		return 0, fmt.Errorf("%w: grid end %v is before start %v", ErrInvalidParameter, end, start)
	}
	span := (end - start) / step
	if span+1 > MaxGridPoints {
		return 0, fmt.Errorf("%w: grid of %.0f points exceeds %d", ErrInvalidParameter, span+1, MaxGridPoints)
	}
	return int(math.Floor(span+gridSlack)) + 1, nil
}
