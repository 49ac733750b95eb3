package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/propagation-tool/model"
)

const (
	// MaxHorizonIterations caps HorizonBisection.
	MaxHorizonIterations = 200
	// horizonTolerance is the relative bracket width at which bisection stops.
	horizonTolerance = 1e-9
)

// EffectiveEarthRadius returns k times the mean earth radius (metres).
func EffectiveEarthRadius(k float64) float64 {
	return k * model.EarthRadiusM
}

// Horizon returns the radio horizon distance sqrt(2·re)·(√ht + √hr) for
// antenna heights ht, hr (metres) and earth radius factor k.
func Horizon(ht, hr, k float64) (float64, error) {
	if err := validateHorizonInputs(ht, hr, k); err != nil {
		return 0, err
	}
	return horizon(ht, hr, EffectiveEarthRadius(k)), nil
}

func horizon(ht, hr, re float64) float64 {
	return math.Sqrt(2*re) * (math.Sqrt(ht) + math.Sqrt(hr))
}

// HorizonBisection finds the ground distance at which the straight Tx–Rx
// chord grazes the effective earth sphere. It agrees with Horizon to within
// the closed form's small-height approximation.
func HorizonBisection(ht, hr, k float64) (float64, error) {
	if err := validateHorizonInputs(ht, hr, k); err != nil {
		return 0, err
	}
	re := EffectiveEarthRadius(k)

	lo := 0.0
	hi := 2 * horizon(ht, hr, re)
	maxArc := math.Pi * re
	if hi > maxArc {
		hi = maxArc
	}
	if chordClearance(ht, hr, hi, re) >= 0 {
		return 0, fmt.Errorf("%w: no blocked distance below %.0f m for ht=%v hr=%v", ErrNoConvergence, hi, ht, hr)
	}

	for i := 0; i < MaxHorizonIterations; i++ {
		mid := 0.5 * (lo + hi)
		if chordClearance(ht, hr, mid, re) > 0 {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo <= horizonTolerance*hi {
			return 0.5 * (lo + hi), nil
		}
	}
	return 0, fmt.Errorf("%w: horizon bisection did not settle in %d iterations", ErrNoConvergence, MaxHorizonIterations)
}

func validateHorizonInputs(ht, hr, k float64) error {
	if err := model.ValidateHeights(ht, hr); err != nil {
		return err
	}
	if math.IsNaN(k) || math.IsInf(k, 0) || k <= 0 {
		return fmt.Errorf("%w: earth radius factor must be a finite value > 0, got %v", ErrInvalidParameter, k)
	}
	return nil
}
