package rpc

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/internal/store"
	"github.com/signalsfoundry/propagation-tool/kb"
	"github.com/signalsfoundry/propagation-tool/model"
)

// RunStore is the archive used by Calculate, GetRun and ListRuns.
type RunStore interface {
	SaveRun(ctx context.Context, id string, calc core.Calculation) (string, error)
	GetRun(ctx context.Context, id string) (store.Record, error)
	ListRuns(ctx context.Context, limit int) ([]store.Summary, error)
}

// ArchiveRecorder is notified after each archived run.
type ArchiveRecorder interface {
	IncArchivedRuns()
}

// Option customises a Service.
type Option func(*Service)

// WithRunStore enables the run archive.
func WithRunStore(runs RunStore) Option {
	return func(s *Service) { s.runs = runs }
}

// WithSweepOptions sets the worker count and observer used by every sweep.
func WithSweepOptions(opts core.SweepOptions) Option {
	return func(s *Service) { s.sweep = opts }
}

// WithArchiveRecorder counts archived runs.
func WithArchiveRecorder(rec ArchiveRecorder) Option {
	return func(s *Service) { s.archived = rec }
}

// Service implements PropagationServiceServer on top of core.
type Service struct {
	grounds *kb.GroundCatalog
	runs    RunStore
	sweep   core.SweepOptions

	archived ArchiveRecorder
	log      logging.Logger
}

var _ PropagationServiceServer = (*Service)(nil)

// NewService constructs a Service. A nil catalog falls back to the default
// ground presets.
func NewService(grounds *kb.GroundCatalog, log logging.Logger, opts ...Option) *Service {
	if grounds == nil {
		grounds = kb.NewDefaultCatalog()
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &Service{grounds: grounds, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func missing(what string) error {
	return fmt.Errorf("%w: %s is required", core.ErrInvalidParameter, what)
}

// parameters resolves an optional ground preset and validates the link.
func (s *Service) parameters(link Link) (model.LinkParameters, error) {
	cfg := link.LinkConfig
	if name := strings.TrimSpace(link.Ground); name != "" {
		g, err := s.grounds.Lookup(name)
		if err != nil {
			return model.LinkParameters{}, err
		}
		g.Apply(&cfg)
	}
	return model.NewLinkParameters(cfg)
}

// Horizon returns the radio horizon for a pair of antenna heights.
func (s *Service) Horizon(ctx context.Context, in *HorizonRequest) (*HorizonResponse, error) {
	if in == nil {
		return nil, ToStatusError(missing("request"))
	}
	method := in.Method
	if method == "" {
		method = HorizonClosedForm
	}

	var (
		d   float64
		err error
	)
	switch method {
	case HorizonClosedForm:
		d, err = core.Horizon(in.TxHeight, in.RxHeight, in.K)
	case HorizonBisection:
		d, err = core.HorizonBisection(in.TxHeight, in.RxHeight, in.K)
	default:
		err = fmt.Errorf("%w: unknown horizon method %q", core.ErrInvalidParameter, in.Method)
	}
	if err != nil {
		s.logger(ctx).Debug(ctx, "Horizon failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return &HorizonResponse{HorizonM: d, Method: method}, nil
}

// PointToPoint evaluates a single geometry. Beyond the horizon it succeeds
// with LineOfSight false.
func (s *Service) PointToPoint(ctx context.Context, in *PointRequest) (*PointResponse, error) {
	if in == nil {
		return nil, ToStatusError(missing("request"))
	}
	p, err := s.parameters(in.Link)
	if err != nil {
		return nil, ToStatusError(err)
	}

	res, zones, ok, err := core.PointWithClearance(p, in.Geometry)
	if err != nil {
		s.logger(ctx).Warn(ctx, "PointToPoint failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	horizon, err := core.Horizon(in.Geometry.TxHeight, in.Geometry.RxHeight, p.K())
	if err != nil {
		return nil, ToStatusError(err)
	}

	out := &PointResponse{LineOfSight: ok, HorizonM: horizon}
	if ok {
		out.Result = res
		out.FresnelZones = zones
	}
	return out, nil
}

// SweepDistance runs a distance sweep. A zero start is replaced by the step.
func (s *Service) SweepDistance(ctx context.Context, in *DistanceSweepRequest) (*DistanceSweepResponse, error) {
	if in == nil {
		return nil, ToStatusError(missing("request"))
	}
	p, err := s.parameters(in.Link)
	if err != nil {
		return nil, ToStatusError(err)
	}
	req := in.Sweep
	if req.Start == 0 {
		req.Start = req.Step
	}

	ctx, span := StartChildSpan(ctx, "sweep/distance",
		attribute.Float64("start_m", req.Start),
		attribute.Float64("end_m", req.End),
		attribute.Float64("step_m", req.Step),
	)
	defer span.End()

	sweep, err := core.SweepDistance(ctx, p, req, s.sweep)
	if err != nil {
		span.RecordError(err)
		s.logger(ctx).Warn(ctx, "distance sweep failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "distance sweep complete",
		logging.Float("horizon_m", sweep.Horizon),
		logging.Int("emitted", len(sweep.Samples)),
		logging.Int("dropped", sweep.Dropped),
	)
	return &DistanceSweepResponse{Sweep: sweep, State: sweep.State()}, nil
}

// SweepHeight runs a height sweep at a fixed distance.
func (s *Service) SweepHeight(ctx context.Context, in *HeightSweepRequest) (*HeightSweepResponse, error) {
	if in == nil {
		return nil, ToStatusError(missing("request"))
	}
	p, err := s.parameters(in.Link)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := StartChildSpan(ctx, "sweep/height",
		attribute.Float64("distance_m", in.Sweep.Distance),
		attribute.Bool("vary_tx", in.Sweep.VaryTx),
	)
	defer span.End()

	sweep, err := core.SweepHeight(ctx, p, in.Sweep, s.sweep)
	if err != nil {
		span.RecordError(err)
		s.logger(ctx).Warn(ctx, "height sweep failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "height sweep complete",
		logging.Float("distance_m", sweep.Distance),
		logging.Int("emitted", len(sweep.Samples)),
		logging.Int("dropped", sweep.Dropped),
	)
	return &HeightSweepResponse{Sweep: sweep}, nil
}

// Calculate runs a full calculation and optionally archives it under the
// run_id it was logged with.
func (s *Service) Calculate(ctx context.Context, in *CalculateRequest) (*CalculateResponse, error) {
	if in == nil {
		return nil, ToStatusError(missing("request"))
	}
	if in.Persist && s.runs == nil {
		return nil, ToStatusError(ErrArchiveDisabled)
	}
	p, err := s.parameters(in.Link)
	if err != nil {
		return nil, ToStatusError(err)
	}
	req := in.Calculation
	if req.DistanceStart == 0 {
		req.DistanceStart = req.DistanceStep
	}

	ctx, runLog, runID := logging.WithRunLogger(ctx, s.logger(ctx))
	ctx, span := StartChildSpan(ctx, "calculate")
	defer span.End()

	calc, err := core.Calculate(ctx, p, req, s.sweep)
	if err != nil {
		span.RecordError(err)
		runLog.Warn(ctx, "calculation failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	runLog.Info(ctx, "calculation complete",
		logging.Float("horizon_m", calc.State.Horizon),
		logging.Int("distance_emitted", len(calc.Distance.Samples)),
		logging.Int("distance_dropped", calc.Distance.Dropped),
		logging.Int("height_emitted", len(calc.Height.Samples)),
		logging.Int("height_dropped", calc.Height.Dropped),
	)

	out := &CalculateResponse{Calculation: calc}
	if !in.Persist {
		return out, nil
	}

	saveCtx, saveSpan := StartChildSpan(ctx, "archive/save")
	id, err := s.runs.SaveRun(saveCtx, runID, calc)
	saveSpan.End()
	if err != nil {
		span.RecordError(err)
		runLog.Error(ctx, "archiving run failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	if s.archived != nil {
		s.archived.IncArchivedRuns()
	}
	out.RunID = id
	return out, nil
}

// GetRun loads an archived run.
func (s *Service) GetRun(ctx context.Context, in *GetRunRequest) (*GetRunResponse, error) {
	if s.runs == nil {
		return nil, ToStatusError(ErrArchiveDisabled)
	}
	if in == nil || strings.TrimSpace(in.RunID) == "" {
		return nil, ToStatusError(missing("run_id"))
	}
	rec, err := s.runs.GetRun(ctx, in.RunID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &GetRunResponse{RunID: rec.ID, CreatedAt: rec.CreatedAt, Calculation: rec.Calculation}, nil
}

// ListRuns returns archived run summaries, newest first.
func (s *Service) ListRuns(ctx context.Context, in *ListRunsRequest) (*ListRunsResponse, error) {
	if s.runs == nil {
		return nil, ToStatusError(ErrArchiveDisabled)
	}
	limit := 0
	if in != nil {
		limit = in.Limit
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return &ListRunsResponse{Runs: runs}, nil
}

// ListGrounds returns the ground catalog sorted by name.
func (s *Service) ListGrounds(ctx context.Context, _ *emptypb.Empty) (*ListGroundsResponse, error) {
	return &ListGroundsResponse{Grounds: s.grounds.List()}, nil
}
