package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/propagation-tool/model"
)

// SweepKind names the independent axis of a sweep.
type SweepKind string

const (
	KindDistance SweepKind = "distance"
	KindHeight   SweepKind = "height"
)

// PointOutcome classifies a single sample of a sweep.
type PointOutcome string

const (
	OutcomeEmitted       PointOutcome = "emitted"
	OutcomeBeyondHorizon PointOutcome = "beyond_horizon"
	OutcomeFailed        PointOutcome = "failed"
)

// SweepObserver receives per-point and per-sweep notifications. Calls may
// arrive from several goroutines when SweepOptions.Workers > 1.
type SweepObserver interface {
	ObservePoint(kind SweepKind, outcome PointOutcome)
	ObserveSweep(kind SweepKind, elapsed time.Duration, emitted, dropped int)
}

// SweepOptions tunes how a sweep is executed. The zero value evaluates
// points sequentially with no observer.
type SweepOptions struct {
	// Workers > 1 evaluates points concurrently. Output order always follows
	// the input grid.
	Workers  int
	Observer SweepObserver
}

// SweepState is carried from a distance sweep into a height sweep.
type SweepState struct {
	Horizon     float64 `json:"horizon_m"`
	MaxDistance float64 `json:"max_distance_m"`
	// HasSamples is false when the distance sweep emitted nothing, in which
	// case MaxDistance carries no information.
	HasSamples bool `json:"has_samples"`
}

type DistanceSweepRequest struct {
	TxHeight float64 `json:"tx_height_m"`
	RxHeight float64 `json:"rx_height_m"`
	Start    float64 `json:"start_m"`
	End      float64 `json:"end_m"`
	Step     float64 `json:"step_m"`
}

type DistanceSample struct {
	Distance float64           `json:"distance_m"`
	Result   PropagationResult `json:"result"`
}

type DistanceSweep struct {
	Horizon float64          `json:"horizon_m"`
	Samples []DistanceSample `json:"samples"`
	Dropped int              `json:"dropped"`
}

// State returns the horizon and running maximum sampled distance.
func (s DistanceSweep) State() SweepState {
	st := SweepState{Horizon: s.Horizon}
	for _, smp := range s.Samples {
		if !st.HasSamples || smp.Distance > st.MaxDistance {
			st.MaxDistance = smp.Distance
			st.HasSamples = true
		}
	}
	return st
}

// HeightSweepRequest varies one antenna height while the other stays at
// FixedHeight. VaryTx selects which antenna moves.
type HeightSweepRequest struct {
	Start       float64 `json:"start_m"`
	End         float64 `json:"end_m"`
	Step        float64 `json:"step_m"`
	FixedHeight float64 `json:"fixed_height_m"`
	Distance    float64 `json:"distance_m"`
	VaryTx      bool    `json:"vary_tx"`
}

type HeightSample struct {
	Height   float64           `json:"height_m"`
	TxHeight float64           `json:"tx_height_m"`
	RxHeight float64           `json:"rx_height_m"`
	Horizon  float64           `json:"horizon_m"`
	Result   PropagationResult `json:"result"`
	Fresnel  int               `json:"fresnel_zones"`
}

type HeightSweep struct {
	Distance float64        `json:"distance_m"`
	Samples  []HeightSample `json:"samples"`
	Dropped  int            `json:"dropped"`
}

// SweepDistance evaluates the link on the inclusive distance grid at fixed
// heights. Samples at or beyond the horizon are dropped, never emitted.
func SweepDistance(ctx context.Context, p model.LinkParameters, req DistanceSweepRequest, opts SweepOptions) (DistanceSweep, error) {
	started := time.Now()
	hz, err := Horizon(req.TxHeight, req.RxHeight, p.K())
	if err != nil {
		return DistanceSweep{}, err
	}
	grid, err := Grid(req.Start, req.End, req.Step)
	if err != nil {
		return DistanceSweep{}, fmt.Errorf("distance grid: %w", err)
	}

	total := 0
	for range grid {
		total++
	}
	distances := slices.Collect(BelowHorizon(grid, hz))
	dropped := total - len(distances)
	for range dropped {
		opts.observePoint(KindDistance, OutcomeBeyondHorizon)
	}

	results, err := evaluateAll(ctx, distances, opts, KindDistance, func(r float64) (DistanceSample, bool, error) {
		res, ok, err := PointToPoint(p, model.Geometry{TxHeight: req.TxHeight, RxHeight: req.RxHeight, Distance: r})
		if err != nil {
			return DistanceSample{}, false, fmt.Errorf("distance %v m: %w", r, err)
		}
		return DistanceSample{Distance: r, Result: res}, ok, nil
	})
	if err != nil {
		return DistanceSweep{}, err
	}

	out := DistanceSweep{Horizon: hz, Samples: make([]DistanceSample, 0, len(results))}
	for _, res := range results {
		if !res.ok {
			dropped++
			continue
		}
		out.Samples = append(out.Samples, res.value)
	}
	out.Dropped = dropped
	opts.observeSweep(KindDistance, time.Since(started), len(out.Samples), out.Dropped)
	return out, nil
}

// SweepHeight evaluates the link at a fixed distance while one antenna
// height steps through the inclusive grid. The horizon is recomputed for
// every height pair and heights whose horizon does not exceed the distance
// are dropped.
func SweepHeight(ctx context.Context, p model.LinkParameters, req HeightSweepRequest, opts SweepOptions) (HeightSweep, error) {
	started := time.Now()
	fixed := model.Geometry{TxHeight: req.FixedHeight, RxHeight: req.FixedHeight, Distance: req.Distance}
	if err := fixed.Validate(); err != nil {
		return HeightSweep{}, fmt.Errorf("height sweep: %w", err)
	}
	grid, err := Grid(req.Start, req.End, req.Step)
	if err != nil {
		return HeightSweep{}, fmt.Errorf("height grid: %w", err)
	}
	heights := slices.Collect(grid)

	results, err := evaluateAll(ctx, heights, opts, KindHeight, func(h float64) (HeightSample, bool, error) {
		ht, hr := req.FixedHeight, h
		if req.VaryTx {
			ht, hr = h, req.FixedHeight
		}
		hz, err := Horizon(ht, hr, p.K())
		if err != nil {
			return HeightSample{}, false, fmt.Errorf("height %v m: %w", h, err)
		}
		if req.Distance >= hz {
			return HeightSample{}, false, nil
		}
		res, zones, ok, err := PointWithClearance(p, model.Geometry{TxHeight: ht, RxHeight: hr, Distance: req.Distance})
		if err != nil {
			return HeightSample{}, false, fmt.Errorf("height %v m: %w", h, err)
		}
		return HeightSample{
			Height:   h,
			TxHeight: ht,
			RxHeight: hr,
			Horizon:  hz,
			Result:   res,
			Fresnel:  zones,
		}, ok, nil
	})
	if err != nil {
		return HeightSweep{}, err
	}

	out := HeightSweep{Distance: req.Distance, Samples: make([]HeightSample, 0, len(results))}
	for _, res := range results {
		if !res.ok {
			out.Dropped++
			continue
		}
		out.Samples = append(out.Samples, res.value)
	}
	opts.observeSweep(KindHeight, time.Since(started), len(out.Samples), out.Dropped)
	return out, nil
}

type pointResult[T any] struct {
	value T
	ok    bool
}

// evaluateAll runs fn over xs and returns results in input order. It stops
// scheduling new points once ctx is done or a point fails.
func evaluateAll[T any](ctx context.Context, xs []float64, opts SweepOptions, kind SweepKind, fn func(float64) (T, bool, error)) ([]pointResult[T], error) {
	out := make([]pointResult[T], len(xs))
	eval := func(i int) error {
		v, ok, err := fn(xs[i])
		switch {
		case err != nil:
			opts.observePoint(kind, OutcomeFailed)
			return err
		case !ok:
			opts.observePoint(kind, OutcomeBeyondHorizon)
		default:
			opts.observePoint(kind, OutcomeEmitted)
		}
		out[i] = pointResult[T]{value: v, ok: ok}
		return nil
	}

	if opts.Workers <= 1 {
		for i := range xs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := eval(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range xs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error { return eval(i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o SweepOptions) observePoint(kind SweepKind, outcome PointOutcome) {
	if o.Observer != nil {
		o.Observer.ObservePoint(kind, outcome)
	}
}

func (o SweepOptions) observeSweep(kind SweepKind, elapsed time.Duration, emitted, dropped int) {
	if o.Observer != nil {
		o.Observer.ObserveSweep(kind, elapsed, emitted, dropped)
	}
}
