package rpc

import (
	"time"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/store"
	"github.com/signalsfoundry/propagation-tool/kb"
	"github.com/signalsfoundry/propagation-tool/model"
)

// Link carries link parameters on the wire. A non-empty Ground names a
// catalog preset whose conductivity and permittivity replace the inline
// values.
type Link struct {
	model.LinkConfig
	Ground string `json:"ground,omitempty"`
}

// HorizonMethod selects how Horizon is computed.
type HorizonMethod string

const (
	HorizonClosedForm HorizonMethod = "closed-form"
	HorizonBisection  HorizonMethod = "bisection"
)

type HorizonRequest struct {
	TxHeight float64 `json:"tx_height_m"`
	RxHeight float64 `json:"rx_height_m"`
	K        float64 `json:"k"`
	// Method defaults to HorizonClosedForm.
	Method HorizonMethod `json:"method,omitempty"`
}

type HorizonResponse struct {
	HorizonM float64       `json:"horizon_m"`
	Method   HorizonMethod `json:"method"`
}

type PointRequest struct {
	Link     Link           `json:"link"`
	Geometry model.Geometry `json:"geometry"`
}

// PointResponse leaves Result and FresnelZones zero when LineOfSight is
// false.
type PointResponse struct {
	LineOfSight  bool                   `json:"line_of_sight"`
	HorizonM     float64                `json:"horizon_m"`
	Result       core.PropagationResult `json:"result"`
	FresnelZones int                    `json:"fresnel_zones"`
}

type DistanceSweepRequest struct {
	Link  Link                      `json:"link"`
	Sweep core.DistanceSweepRequest `json:"sweep"`
}

type DistanceSweepResponse struct {
	Sweep core.DistanceSweep `json:"sweep"`
	State core.SweepState    `json:"state"`
}

type HeightSweepRequest struct {
	Link  Link                    `json:"link"`
	Sweep core.HeightSweepRequest `json:"sweep"`
}

type HeightSweepResponse struct {
	Sweep core.HeightSweep `json:"sweep"`
}

type CalculateRequest struct {
	Link        Link                    `json:"link"`
	Calculation core.CalculationRequest `json:"calculation"`
	// Persist archives the run and returns its ID.
	Persist bool `json:"persist,omitempty"`
}

type CalculateResponse struct {
	RunID       string           `json:"run_id,omitempty"`
	Calculation core.Calculation `json:"calculation"`
}

type GetRunRequest struct {
	RunID string `json:"run_id"`
}

type GetRunResponse struct {
	RunID       string           `json:"run_id"`
	CreatedAt   time.Time        `json:"created_at"`
	Calculation core.Calculation `json:"calculation"`
}

type ListRunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListRunsResponse struct {
	Runs []store.Summary `json:"runs"`
}

type ListGroundsResponse struct {
	Grounds []kb.Ground `json:"grounds"`
}
