package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/propagation-tool/model"
)

// MinGrazingAngle is the floor applied to the solved grazing angle (radians).
const MinGrazingAngle = 0.1 * math.Pi / 180

// pathDifferenceTolerance bounds the rounding error of ΔR relative to the
// summed path lengths. Just below the horizon ΔR cancels to zero and can come
// out a few ulps negative; within this band it is taken as exactly 0.
const pathDifferenceTolerance = 1e-12

// Vec3 is a position in an earth-centred frame, in metres.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// surfacePoint places a point at height h above a sphere of radius re, at
// ground arc distance arc from the transmitter foot along the great circle.
func surfacePoint(arc, h, re float64) Vec3 {
	phi := arc / re
	rho := re + h
	return Vec3{X: rho * math.Sin(phi), Y: rho * math.Cos(phi)}
}

// chordClearance returns how far the straight Tx–Rx segment stays above the
// sphere of radius re. Negative values mean the earth blocks the chord.
func chordClearance(ht, hr, r, re float64) float64 {
	p1 := surfacePoint(0, ht, re)
	p2 := surfacePoint(r, hr, re)

	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		return p1.Norm() - re
	}

	// Closest point on the segment to the sphere centre.
	t := -p1.Dot(v) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := Vec3{
		X: p1.X + v.X*t,
		Y: p1.Y + v.Y*t,
		Z: p1.Z + v.Z*t,
	}
	return closest.Norm() - re
}

// ReflectionGeometry is the solved specular two-ray geometry for one
// (ht, hr, r) triple. Lengths are metres, angles radians.
type ReflectionGeometry struct {
	TxHeight float64
	RxHeight float64
	Distance float64

	// EffectiveRadius is k·EarthRadius used to solve the geometry.
	EffectiveRadius float64

	// GroundTx and GroundRx split Distance at the reflection point.
	GroundTx float64
	GroundRx float64

	// SlantTx is Tx→reflection, SlantRx is reflection→Rx, Direct is Tx→Rx.
	SlantTx float64
	SlantRx float64
	Direct  float64

	// PathDifference is SlantTx + SlantRx − Direct.
	PathDifference float64

	// Grazing is the angle used downstream, already floored at
	// MinGrazingAngle. GrazingClamped reports whether the floor applied.
	Grazing        float64
	GrazingClamped bool
}

// OpticalDifference returns β·ΔR for phase constant beta.
func (g ReflectionGeometry) OpticalDifference(beta float64) float64 {
	return beta * g.PathDifference
}

// SolveGeometry solves the curved-earth reflection geometry. ok is false when
// r is at or beyond the radio horizon; that is an expected outcome, not an
// error. Errors wrap ErrInvalidParameter or ErrNumericDegeneracy.
func SolveGeometry(ht, hr, r, k float64) (ReflectionGeometry, bool, error) {
	if err := (model.Geometry{TxHeight: ht, RxHeight: hr, Distance: r}).Validate(); err != nil {
		return ReflectionGeometry{}, false, err
	}
	hz, err := Horizon(ht, hr, k)
	if err != nil {
		return ReflectionGeometry{}, false, err
	}
	if r >= hz {
		return ReflectionGeometry{}, false, nil
	}
	g, err := solveBelowHorizon(ht, hr, r, EffectiveEarthRadius(k))
	if err != nil {
		return ReflectionGeometry{}, false, err
	}
	return g, true, nil
}

func solveBelowHorizon(ht, hr, r, re float64) (ReflectionGeometry, error) {
	p := 2 / math.Sqrt(3) * math.Sqrt(re*(ht+hr)+r*r/4)
	xiArg := 2 * re * r * (hr - ht) / (p * p * p)
	if math.IsNaN(xiArg) || xiArg < -1 || xiArg > 1 {
		return ReflectionGeometry{}, degenerate("reflection split arcsin argument %v", xiArg, ht, hr, r)
	}
	xi := math.Asin(xiArg)

	r1 := r/2 - p*math.Sin(xi/3)
	r2 := r - r1
	if r1 < 0 || r2 < 0 {
		return ReflectionGeometry{}, degenerate("reflection point %v m outside the path", r1, ht, hr, r)
	}

	phi1 := r1 / re
	phi2 := r2 / re
	s1 := math.Sin(phi1 / 2)
	s2 := math.Sin(phi2 / 2)
	sd := math.Sin((phi1 + phi2) / 2)

	slantTx := math.Sqrt(ht*ht + 4*re*(re+ht)*s1*s1)
	slantRx := math.Sqrt(hr*hr + 4*re*(re+hr)*s2*s2)
	direct := math.Sqrt((hr-ht)*(hr-ht) + 4*(re+hr)*(re+ht)*sd*sd)
	deltaR := slantTx + slantRx - direct
	if deltaR < 0 && -deltaR <= pathDifferenceTolerance*(slantTx+slantRx+direct) {
		deltaR = 0
	}

	sqrtArg := deltaR * (slantTx + slantRx + direct) / (4 * slantTx * slantRx)
	if math.IsNaN(sqrtArg) || sqrtArg < 0 {
		return ReflectionGeometry{}, degenerate("grazing square-root argument %v", sqrtArg, ht, hr, r)
	}
	asinArg := math.Sqrt(sqrtArg)
	if asinArg > 1 {
		return ReflectionGeometry{}, degenerate("grazing arcsin argument %v", asinArg, ht, hr, r)
	}

	psi := math.Asin(asinArg)
	clamped := false
	if psi < MinGrazingAngle {
		psi = MinGrazingAngle
		clamped = true
	}

	return ReflectionGeometry{
		TxHeight:        ht,
		RxHeight:        hr,
		Distance:        r,
		EffectiveRadius: re,
		GroundTx:        r1,
		GroundRx:        r2,
		SlantTx:         slantTx,
		SlantRx:         slantRx,
		Direct:          direct,
		PathDifference:  deltaR,
		Grazing:         psi,
		GrazingClamped:  clamped,
	}, nil
}

func degenerate(format string, v, ht, hr, r float64) error {
	return fmt.Errorf("%w: "+format+" (ht=%v hr=%v r=%v)", ErrNumericDegeneracy, v, ht, hr, r)
}
