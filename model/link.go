package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter reports an input outside its physical domain.
var ErrInvalidParameter = errors.New("invalid parameter")

// LinkConfig is the mutable input used to build LinkParameters. Units are SI:
// hertz, watts, siemens per metre, metres.
type LinkConfig struct {
	FrequencyHz       float64      `json:"frequency_hz" mapstructure:"frequencyHz"`
	TxPowerW          float64      `json:"tx_power_w" mapstructure:"txPowerW"`
	Conductivity      float64      `json:"conductivity" mapstructure:"conductivity"`
	Permittivity      float64      `json:"permittivity" mapstructure:"permittivity"`
	RoughnessM        float64      `json:"roughness_m" mapstructure:"roughnessM"`
	Antenna           AntennaType  `json:"antenna" mapstructure:"antenna"`
	Polarization      Polarization `json:"polarization" mapstructure:"polarization"`
	EarthRadiusFactor float64      `json:"k" mapstructure:"k"`
}

// LinkParameters describes one link for the lifetime of a calculation run.
// It has no exported fields; construct it with NewLinkParameters.
type LinkParameters struct {
	cfg    LinkConfig
	consts Constants

	omega      float64
	wavelength float64
	beta       float64
}

// NewLinkParameters validates cfg and derives the angular frequency,
// wavelength and phase constant.
func NewLinkParameters(cfg LinkConfig) (LinkParameters, error) {
	if err := cfg.Validate(); err != nil {
		return LinkParameters{}, err
	}
	consts := Physical()
	omega := 2 * math.Pi * cfg.FrequencyHz
	return LinkParameters{
		cfg:        cfg,
		consts:     consts,
		omega:      omega,
		wavelength: consts.SpeedOfLight / cfg.FrequencyHz,
		beta:       omega / consts.SpeedOfLight,
	}, nil
}

// Validate checks every field against its physical domain.
func (c LinkConfig) Validate() error {
	checks := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"frequency", c.FrequencyHz, true},
		{"tx power", c.TxPowerW, true},
		{"conductivity", c.Conductivity, false},
		{"permittivity", c.Permittivity, true},
		{"roughness", c.RoughnessM, false},
		{"earth radius factor", c.EarthRadiusFactor, true},
	}
	for _, chk := range checks {
		if math.IsNaN(chk.value) || math.IsInf(chk.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameter, chk.name, chk.value)
		}
		if chk.positive && chk.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidParameter, chk.name, chk.value)
		}
		if !chk.positive && chk.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidParameter, chk.name, chk.value)
		}
	}
	if !c.Antenna.Valid() {
		return fmt.Errorf("%w: antenna type is required", ErrInvalidParameter)
	}
	if !c.Polarization.Valid() {
		return fmt.Errorf("%w: polarization is required", ErrInvalidParameter)
	}
	return nil
}

// Config returns a copy of the configuration the parameters were built from.
func (p LinkParameters) Config() LinkConfig { return p.cfg }

func (p LinkParameters) Constants() Constants { return p.consts }

func (p LinkParameters) Frequency() float64 { return p.cfg.FrequencyHz }

func (p LinkParameters) TxPower() float64 { return p.cfg.TxPowerW }

func (p LinkParameters) Conductivity() float64 { return p.cfg.Conductivity }

func (p LinkParameters) Permittivity() float64 { return p.cfg.Permittivity }

func (p LinkParameters) Roughness() float64 { return p.cfg.RoughnessM }

func (p LinkParameters) Antenna() AntennaType { return p.cfg.Antenna }

func (p LinkParameters) Polarization() Polarization { return p.cfg.Polarization }

// K is the effective-earth-radius factor.
func (p LinkParameters) K() float64 { return p.cfg.EarthRadiusFactor }

// AngularFrequency ω = 2πf (rad/s).
func (p LinkParameters) AngularFrequency() float64 { return p.omega }

// Wavelength λ = c/f (m).
func (p LinkParameters) Wavelength() float64 { return p.wavelength }

// PhaseConstant β = 2π/λ (rad/m).
func (p LinkParameters) PhaseConstant() float64 { return p.beta }

// TxGain and RxGain are the linear antenna gains. Both ends use the same
// antenna type.
func (p LinkParameters) TxGain() float64 { return p.cfg.Antenna.Gain() }

func (p LinkParameters) RxGain() float64 { return p.cfg.Antenna.Gain() }

// EffectiveEarthRadius is k times the mean earth radius.
func (p LinkParameters) EffectiveEarthRadius() float64 {
	return p.cfg.EarthRadiusFactor * p.consts.EarthRadius
}

// Geometry places the two antennas: heights above ground and the ground
// distance between them, all in metres.
type Geometry struct {
	TxHeight float64 `json:"tx_height_m"`
	RxHeight float64 `json:"rx_height_m"`
	Distance float64 `json:"distance_m"`
}

// Validate requires all three values to be finite and strictly positive.
func (g Geometry) Validate() error {
	if err := ValidateHeights(g.TxHeight, g.RxHeight); err != nil {
		return err
	}
	return positive("distance", g.Distance)
}

// ValidateHeights checks a transmitter/receiver height pair.
func ValidateHeights(ht, hr float64) error {
	if err := positive("tx height", ht); err != nil {
		return err
	}
	return positive("rx height", hr)
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be a finite value > 0, got %v", ErrInvalidParameter, name, v)
	}
	return nil
}
