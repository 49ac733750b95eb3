package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/propagation-tool/model"
)

// CalculationRequest drives one full run: a distance sweep at the nominal
// heights followed by a height sweep at the largest distance it sampled.
type CalculationRequest struct {
	TxHeight float64 `json:"tx_height_m"`
	RxHeight float64 `json:"rx_height_m"`

	DistanceStart float64 `json:"distance_start_m"`
	DistanceEnd   float64 `json:"distance_end_m"`
	DistanceStep  float64 `json:"distance_step_m"`

	// HeightStart and HeightEnd default to 1 m and twice the nominal height
	// of the antenna being varied when zero.
	HeightStart float64 `json:"height_start_m"`
	HeightEnd   float64 `json:"height_end_m"`
	HeightStep  float64 `json:"height_step_m"`
	// VaryTx moves the transmitter in the height sweep, otherwise the
	// receiver moves.
	VaryTx bool `json:"vary_tx"`
}

// Calculation is the output of one run.
type Calculation struct {
	Request  CalculationRequest `json:"request"`
	Link     model.LinkConfig   `json:"link"`
	State    SweepState         `json:"state"`
	Distance DistanceSweep      `json:"distance_sweep"`
	Height   HeightSweep        `json:"height_sweep"`
}

// HeightRange returns the height axis bounds the request resolves to.
func (r CalculationRequest) HeightRange() (start, end float64) {
	start, end = r.HeightStart, r.HeightEnd
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = 2 * r.RxHeight
		if r.VaryTx {
			end = 2 * r.TxHeight
		}
	}
	return start, end
}

// Calculate runs the distance sweep, then seeds the height sweep with the
// resulting SweepState. When no distance was emitted the height sweep is
// empty.
func Calculate(ctx context.Context, p model.LinkParameters, req CalculationRequest, opts SweepOptions) (Calculation, error) {
	calc := Calculation{Request: req, Link: p.Config()}

	dist, err := SweepDistance(ctx, p, DistanceSweepRequest{
		TxHeight: req.TxHeight,
		RxHeight: req.RxHeight,
		Start:    req.DistanceStart,
		End:      req.DistanceEnd,
		Step:     req.DistanceStep,
	}, opts)
	if err != nil {
		return Calculation{}, fmt.Errorf("distance sweep: %w", err)
	}
	calc.Distance = dist
	calc.State = dist.State()

	if !calc.State.HasSamples {
		return calc, nil
	}

	start, end := req.HeightRange()
	fixed := req.RxHeight
	if !req.VaryTx {
		fixed = req.TxHeight
	}
	height, err := SweepHeight(ctx, p, HeightSweepRequest{
		Start:       start,
		End:         end,
		Step:        req.HeightStep,
		FixedHeight: fixed,
		Distance:    calc.State.MaxDistance,
		VaryTx:      req.VaryTx,
	}, opts)
	if err != nil {
		return Calculation{}, fmt.Errorf("height sweep: %w", err)
	}
	calc.Height = height
	return calc, nil
}
