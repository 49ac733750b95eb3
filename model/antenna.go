package model

import (
	"fmt"
	"strings"
)

// AntennaType selects one of the supported antenna families. Each carries a
// fixed linear gain used for both ends of the link.
type AntennaType int

const (
	AntennaUnspecified AntennaType = iota
	HalfWaveDipole
	QuarterWaveMonopole
	Isotropic
)

// Gain returns the linear gain of the antenna, or 0 for an unspecified type.
func (a AntennaType) Gain() float64 {
	switch a {
	case HalfWaveDipole:
		return 1.641
	case QuarterWaveMonopole:
		return 3.282
	case Isotropic:
		return 1.0
	default:
		return 0
	}
}

// Valid reports whether a is one of the known antenna types.
func (a AntennaType) Valid() bool {
	return a.Gain() > 0
}

func (a AntennaType) String() string {
	switch a {
	case HalfWaveDipole:
		return "half-wave-dipole"
	case QuarterWaveMonopole:
		return "quarter-wave-monopole"
	case Isotropic:
		return "isotropic"
	default:
		return "unspecified"
	}
}

// ParseAntennaType accepts the canonical names returned by String plus the
// short forms "dipole" and "monopole".
func ParseAntennaType(s string) (AntennaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "half-wave-dipole", "dipole":
		return HalfWaveDipole, nil
	case "quarter-wave-monopole", "monopole":
		return QuarterWaveMonopole, nil
	case "isotropic":
		return Isotropic, nil
	default:
		return AntennaUnspecified, fmt.Errorf("%w: unknown antenna type %q", ErrInvalidParameter, s)
	}
}

func (a AntennaType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AntennaType) UnmarshalText(text []byte) error {
	if len(text) == 0 || string(text) == "unspecified" {
		*a = AntennaUnspecified
		return nil
	}
	parsed, err := ParseAntennaType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Polarization selects which Fresnel reflection coefficient applies at the
// ground.
type Polarization int

const (
	PolarizationUnspecified Polarization = iota
	// Horizontal is perpendicular (TE) to the plane of incidence.
	Horizontal
	// Vertical is parallel (TM) to the plane of incidence.
	Vertical
)

func (p Polarization) Valid() bool {
	return p == Horizontal || p == Vertical
}

func (p Polarization) String() string {
	switch p {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unspecified"
	}
}

// ParsePolarization accepts "horizontal"/"h" and "vertical"/"v".
func ParsePolarization(s string) (Polarization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	default:
		return PolarizationUnspecified, fmt.Errorf("%w: unknown polarization %q", ErrInvalidParameter, s)
	}
}

func (p Polarization) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Polarization) UnmarshalText(text []byte) error {
	if len(text) == 0 || string(text) == "unspecified" {
		*p = PolarizationUnspecified
		return nil
	}
	parsed, err := ParsePolarization(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
