package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/propagation-tool/model"
)

const scenarioK = 1.3333

func scenarioConfig() model.LinkConfig {
	return model.LinkConfig{
		FrequencyHz:       100e6,
		TxPowerW:          10,
		Conductivity:      0.01,
		Permittivity:      15,
		RoughnessM:        0.1,
		Antenna:           model.Isotropic,
		Polarization:      model.Horizontal,
		EarthRadiusFactor: scenarioK,
	}
}

func scenarioParams(t *testing.T) model.LinkParameters {
	t.Helper()
	p, err := model.NewLinkParameters(scenarioConfig())
	if err != nil {
		t.Fatalf("NewLinkParameters: %v", err)
	}
	return p
}

func paramsWith(t *testing.T, mutate func(*model.LinkConfig)) model.LinkParameters {
	t.Helper()
	cfg := scenarioConfig()
	mutate(&cfg)
	p, err := model.NewLinkParameters(cfg)
	if err != nil {
		t.Fatalf("NewLinkParameters: %v", err)
	}
	return p
}

func closeRel(got, want, tol float64) bool {
	if want == 0 {
		return math.Abs(got) <= tol
	}
	return math.Abs(got-want) <= tol*math.Abs(want)
}
