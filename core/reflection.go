package core

import (
	"math"
	"math/cmplx"

	"github.com/signalsfoundry/propagation-tool/model"
)

// PropagationResult is the outcome of one point evaluation. Fields are in
// V/m and W; magnitudes are linear.
type PropagationResult struct {
	Field                 float64 `json:"field_v_per_m"`
	Power                 float64 `json:"power_w"`
	FreeSpaceField        float64 `json:"free_space_field_v_per_m"`
	FreeSpacePower        float64 `json:"free_space_power_w"`
	ReflectionMagnitude   float64 `json:"reflection_magnitude"`
	InterferenceMagnitude float64 `json:"interference_magnitude"`
}

// ComplexPermittivity returns ε_c = ε_r − jσ/(ωε0) for the link's ground.
func ComplexPermittivity(p model.LinkParameters) complex128 {
	eps0 := p.Constants().VacuumPermittivity
	return complex(p.Permittivity(), -p.Conductivity()/(p.AngularFrequency()*eps0))
}

// ReflectionCoefficient returns the smooth-ground Fresnel coefficient at
// grazing angle psi. Horizontal polarization uses the perpendicular (TE)
// form, Vertical the parallel (TM) form.
func ReflectionCoefficient(p model.LinkParameters, psi float64) complex128 {
	epsC := ComplexPermittivity(p)
	sinPsi := complex(math.Sin(psi), 0)
	cosPsi := math.Cos(psi)
	root := cmplx.Sqrt(epsC - complex(cosPsi*cosPsi, 0))

	if p.Polarization() == model.Vertical {
		return (epsC*sinPsi - root) / (epsC*sinPsi + root)
	}
	return (sinPsi - root) / (sinPsi + root)
}

// DivergenceFactor is the spreading loss of the reflected ray off a convex
// earth.
func DivergenceFactor(g ReflectionGeometry) float64 {
	return 1 / math.Sqrt(1+2*g.GroundTx*g.GroundRx/(g.EffectiveRadius*g.Distance*math.Sin(g.Grazing)))
}

// RoughnessFactor is the Ament attenuation for rms roughness sigmaH (m) at
// phase constant beta.
func RoughnessFactor(beta, sigmaH, psi float64) float64 {
	x := beta * sigmaH * math.Sin(psi)
	return math.Exp(-2 * x * x)
}

// EffectiveReflection returns Γ·D·ρ for the solved geometry.
func EffectiveReflection(p model.LinkParameters, g ReflectionGeometry) complex128 {
	gamma := ReflectionCoefficient(p, g.Grazing)
	scale := DivergenceFactor(g) * RoughnessFactor(p.PhaseConstant(), p.Roughness(), g.Grazing)
	return gamma * complex(scale, 0)
}

// Evaluate computes the two-ray field and power for a solved geometry. ok is
// false when g is the zero value, which is what SolveGeometry returns beyond
// the horizon.
func Evaluate(p model.LinkParameters, g ReflectionGeometry) (PropagationResult, bool) {
	if !g.Defined() {
		return PropagationResult{}, false
	}
	c := p.Constants()
	eta0 := c.VacuumImpedance

	gammaEff := EffectiveReflection(p, g)
	mag := cmplx.Abs(gammaEff)
	phase := g.OpticalDifference(p.PhaseConstant()) + cmplx.Phase(gammaEff)
	radicand := 1 + mag*mag + 2*mag*math.Cos(phase)
	if radicand < 0 {
		// Only reachable through rounding when |Γ_eff| is 1 and the rays cancel.
		radicand = 0
	}
	fi := math.Sqrt(radicand)

	e0 := math.Sqrt(eta0*p.TxPower()*p.TxGain()/(4*math.Pi)) / g.Direct
	eTotal := e0 * fi
	aperture := p.Wavelength() * p.Wavelength() / (4 * math.Pi) * p.RxGain()

	lambdaOver := p.Wavelength() / (4 * math.Pi * g.Direct)
	return PropagationResult{
		Field:                 eTotal,
		Power:                 eTotal * eTotal / eta0 * aperture,
		FreeSpaceField:        e0,
		FreeSpacePower:        p.TxPower() * p.TxGain() * p.RxGain() * lambdaOver * lambdaOver,
		ReflectionMagnitude:   mag,
		InterferenceMagnitude: fi,
	}, true
}

// Defined reports whether g holds a solved geometry.
func (g ReflectionGeometry) Defined() bool {
	return g.Direct > 0 && g.SlantTx > 0 && g.SlantRx > 0
}
