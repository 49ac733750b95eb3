package core

import (
	"math"

	"github.com/signalsfoundry/propagation-tool/model"
)

// FresnelClearance returns the number of Fresnel zones fully clear of the
// ground at the reflection point: the first n with hp < √((n+1)·c), where hp
// is the path clearance height and c = λ·r1·r2/(r1+r2). ok is false at or
// beyond the horizon.
func FresnelClearance(ht, hr, r float64, p model.LinkParameters) (int, bool, error) {
	g, ok, err := SolveGeometry(ht, hr, r, p.K())
	if err != nil || !ok {
		return 0, ok, err
	}
	return clearedZones(g, p.Wavelength()), true, nil
}

// ClearanceHeight is the height of the direct path above the earth bulge at
// the reflection point.
func ClearanceHeight(g ReflectionGeometry) float64 {
	r1, r2 := g.GroundTx, g.GroundRx
	return (g.TxHeight*r2+g.RxHeight*r1)/(r1+r2) - r1*r2/(2*g.EffectiveRadius)
}

func clearedZones(g ReflectionGeometry, lambda float64) int {
	hp := ClearanceHeight(g)
	r1, r2 := g.GroundTx, g.GroundRx
	c := lambda * r1 * r2 / (r1 + r2)
	if hp < 0 || c <= 0 || math.IsNaN(hp) {
		return 0
	}

	radius := func(n int) float64 { return math.Sqrt(float64(n+1) * c) }
	n := int(math.Floor(hp * hp / c))
	for n > 0 && hp < radius(n-1) {
		n--
	}
	for hp >= radius(n) {
		n++
	}
	return n
}
