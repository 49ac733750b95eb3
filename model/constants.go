package model

import "math"

const (
	// SpeedOfLight in vacuum (m/s).
	SpeedOfLight = 299792458.0
	// VacuumPermittivity ε0 (F/m).
	VacuumPermittivity = 8.854187817e-12
	// VacuumPermeability μ0 (H/m).
	VacuumPermeability = 4 * math.Pi * 1e-7
	// EarthRadiusM is the mean earth radius used by every curved-earth
	// calculation (metres).
	EarthRadiusM = 6371e3
)

// Constants bundles the physical values a calculation depends on. It is
// passed by value so callers can never mutate a shared copy.
type Constants struct {
	SpeedOfLight       float64
	VacuumPermittivity float64
	VacuumPermeability float64
	// VacuumImpedance is η0 = sqrt(μ0/ε0), roughly 376.73 Ω.
	VacuumImpedance float64
	EarthRadius     float64
}

// Physical returns the reference constants.
func Physical() Constants {
	return Constants{
		SpeedOfLight:       SpeedOfLight,
		VacuumPermittivity: VacuumPermittivity,
		VacuumPermeability: VacuumPermeability,
		VacuumImpedance:    math.Sqrt(VacuumPermeability / VacuumPermittivity),
		EarthRadius:        EarthRadiusM,
	}
}
