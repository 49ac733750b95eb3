package rpc

import (
	"context"
	"math"
	"net"
	"sync/atomic"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/store"
	"github.com/signalsfoundry/propagation-tool/kb"
	"github.com/signalsfoundry/propagation-tool/model"
)

const bufSize = 1 << 20

func scenarioLink() Link {
	return Link{LinkConfig: model.LinkConfig{
		FrequencyHz:       100e6,
		TxPowerW:          10,
		Conductivity:      0.01,
		Permittivity:      15,
		RoughnessM:        0.1,
		Antenna:           model.Isotropic,
		Polarization:      model.Horizontal,
		EarthRadiusFactor: 1.3333,
	}}
}

// newTestClient serves svc over an in-memory listener and returns a client
// bound to it.
func newTestClient(t *testing.T, svc *Service) *Client {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDUnaryServerInterceptor(nil),
		TracingUnaryServerInterceptor(),
	))
	RegisterPropagationServiceServer(server, svc)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(RequestIDUnaryClientInterceptor()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func expectCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if status.Code(err) != want {
		t.Fatalf("expected %v, got %v (%v)", want, status.Code(err), err)
	}
}

func closeRel(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

type countingRecorder struct{ n atomic.Int64 }

func (c *countingRecorder) IncArchivedRuns() { c.n.Add(1) }

func TestHorizonMethods(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil))
	ctx := context.Background()

	closed, err := client.Horizon(ctx, &HorizonRequest{TxHeight: 10, RxHeight: 10, K: 1.3333})
	if err != nil {
		t.Fatalf("Horizon: %v", err)
	}
	if closed.Method != HorizonClosedForm || math.Abs(closed.HorizonM-26068.30) > 1 {
		t.Fatalf("closed-form horizon = %+v", closed)
	}

	bisect, err := client.Horizon(ctx, &HorizonRequest{TxHeight: 10, RxHeight: 10, K: 1.3333, Method: HorizonBisection})
	if err != nil {
		t.Fatalf("Horizon(bisection): %v", err)
	}
	if !closeRel(bisect.HorizonM, closed.HorizonM, 1e-3) {
		t.Fatalf("bisection horizon %v far from closed form %v", bisect.HorizonM, closed.HorizonM)
	}

	_, err = client.Horizon(ctx, &HorizonRequest{TxHeight: 10, RxHeight: 10, K: 1.3333, Method: "newton"})
	expectCode(t, err, codes.InvalidArgument)

	_, err = client.Horizon(ctx, &HorizonRequest{TxHeight: 0, RxHeight: 10, K: 1.3333})
	expectCode(t, err, codes.InvalidArgument)
}

func TestPointToPointInsideAndBeyondHorizon(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil))
	ctx := context.Background()

	inside, err := client.PointToPoint(ctx, &PointRequest{
		Link:     scenarioLink(),
		Geometry: model.Geometry{TxHeight: 10, RxHeight: 10, Distance: 5000},
	})
	if err != nil {
		t.Fatalf("PointToPoint(5 km): %v", err)
	}
	if !inside.LineOfSight {
		t.Fatalf("5 km should be inside the horizon")
	}
	if !closeRel(inside.Result.FreeSpacePower, 2.2765681684569865e-8, 1e-9) {
		t.Fatalf("free-space power = %v", inside.Result.FreeSpacePower)
	}
	if !closeRel(inside.Result.Power, 1.650230270474794e-10, 1e-9) {
		t.Fatalf("power = %v", inside.Result.Power)
	}

	beyond, err := client.PointToPoint(ctx, &PointRequest{
		Link:     scenarioLink(),
		Geometry: model.Geometry{TxHeight: 10, RxHeight: 10, Distance: 35000},
	})
	if err != nil {
		t.Fatalf("PointToPoint(35 km): %v", err)
	}
	if beyond.LineOfSight || beyond.Result != (core.PropagationResult{}) || beyond.FresnelZones != 0 {
		t.Fatalf("35 km should be beyond the horizon, got %+v", beyond)
	}
	if math.Abs(beyond.HorizonM-26068.30) > 1 {
		t.Fatalf("horizon = %v", beyond.HorizonM)
	}
}

func TestPointToPointGroundPreset(t *testing.T) {
	client := newTestClient(t, NewService(kb.NewDefaultCatalog(), nil))
	ctx := context.Background()
	geo := model.Geometry{TxHeight: 10, RxHeight: 10, Distance: 5000}

	plain, err := client.PointToPoint(ctx, &PointRequest{Link: scenarioLink(), Geometry: geo})
	if err != nil {
		t.Fatalf("PointToPoint: %v", err)
	}

	sea := scenarioLink()
	sea.Ground = "sea-water"
	wet, err := client.PointToPoint(ctx, &PointRequest{Link: sea, Geometry: geo})
	if err != nil {
		t.Fatalf("PointToPoint(sea-water): %v", err)
	}
	if wet.Result.ReflectionMagnitude == plain.Result.ReflectionMagnitude {
		t.Fatalf("ground preset did not change the reflection coefficient")
	}

	sea.Ground = "lava"
	_, err = client.PointToPoint(ctx, &PointRequest{Link: sea, Geometry: geo})
	expectCode(t, err, codes.NotFound)
}

func TestSweepDistanceZeroStartUsesStep(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil, WithSweepOptions(core.SweepOptions{Workers: 4})))

	resp, err := client.SweepDistance(context.Background(), &DistanceSweepRequest{
		Link:  scenarioLink(),
		Sweep: core.DistanceSweepRequest{TxHeight: 10, RxHeight: 10, Start: 0, End: 40000, Step: 1000},
	})
	if err != nil {
		t.Fatalf("SweepDistance: %v", err)
	}
	if got := len(resp.Sweep.Samples); got != 26 {
		t.Fatalf("emitted %d samples, want 26", got)
	}
	if resp.Sweep.Samples[0].Distance != 1000 {
		t.Fatalf("first sample at %v, want 1000", resp.Sweep.Samples[0].Distance)
	}
	if resp.Sweep.Dropped != 14 {
		t.Fatalf("dropped = %d, want 14", resp.Sweep.Dropped)
	}
	if !resp.State.HasSamples || resp.State.MaxDistance != 26000 {
		t.Fatalf("state = %+v", resp.State)
	}
}

func TestSweepHeightOmitsBlockedHeights(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil))

	resp, err := client.SweepHeight(context.Background(), &HeightSweepRequest{
		Link:  scenarioLink(),
		Sweep: core.HeightSweepRequest{Start: 1, End: 20, Step: 1, FixedHeight: 10, Distance: 25000},
	})
	if err != nil {
		t.Fatalf("SweepHeight: %v", err)
	}
	if len(resp.Sweep.Samples) != 12 || resp.Sweep.Dropped != 8 {
		t.Fatalf("emitted %d dropped %d, want 12/8", len(resp.Sweep.Samples), resp.Sweep.Dropped)
	}
	if resp.Sweep.Samples[0].Height != 9 {
		t.Fatalf("first kept height = %v, want 9", resp.Sweep.Samples[0].Height)
	}
}

func TestCalculatePersistsAndReloads(t *testing.T) {
	runs, err := store.Open("", nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = runs.Close() })

	rec := &countingRecorder{}
	client := newTestClient(t, NewService(nil, nil, WithRunStore(runs), WithArchiveRecorder(rec)))
	ctx := context.Background()

	calc, err := client.Calculate(ctx, &CalculateRequest{
		Link: scenarioLink(),
		Calculation: core.CalculationRequest{
			TxHeight:     10,
			RxHeight:     10,
			DistanceEnd:  40000,
			DistanceStep: 1000,
			HeightStep:   1,
		},
		Persist: true,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if calc.RunID == "" {
		t.Fatalf("expected a run ID")
	}
	if calc.Calculation.Request.DistanceStart != 1000 {
		t.Fatalf("distance start = %v, want step", calc.Calculation.Request.DistanceStart)
	}
	if rec.n.Load() != 1 {
		t.Fatalf("archived runs = %d, want 1", rec.n.Load())
	}

	got, err := client.GetRun(ctx, &GetRunRequest{RunID: calc.RunID})
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Calculation.Distance.Samples) != len(calc.Calculation.Distance.Samples) ||
		len(got.Calculation.Height.Samples) != len(calc.Calculation.Height.Samples) {
		t.Fatalf("reloaded run differs in size")
	}
	if got.Calculation.Height.Distance != 26000 {
		t.Fatalf("height sweep distance = %v, want 26000", got.Calculation.Height.Distance)
	}

	list, err := client.ListRuns(ctx, &ListRunsRequest{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ID != calc.RunID {
		t.Fatalf("ListRuns = %+v", list.Runs)
	}

	_, err = client.GetRun(ctx, &GetRunRequest{RunID: "missing"})
	expectCode(t, err, codes.NotFound)
}

func TestArchiveDisabled(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil))
	ctx := context.Background()

	_, err := client.Calculate(ctx, &CalculateRequest{
		Link:        scenarioLink(),
		Calculation: core.CalculationRequest{TxHeight: 10, RxHeight: 10, DistanceEnd: 5000, DistanceStep: 1000, HeightStep: 1},
		Persist:     true,
	})
	expectCode(t, err, codes.FailedPrecondition)

	_, err = client.GetRun(ctx, &GetRunRequest{RunID: "x"})
	expectCode(t, err, codes.FailedPrecondition)
}

func TestCalculateRejectsInvalidLink(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil))
	link := scenarioLink()
	link.FrequencyHz = 0

	_, err := client.Calculate(context.Background(), &CalculateRequest{
		Link:        link,
		Calculation: core.CalculationRequest{TxHeight: 10, RxHeight: 10, DistanceEnd: 5000, DistanceStep: 1000, HeightStep: 1},
	})
	expectCode(t, err, codes.InvalidArgument)
}

func TestListGrounds(t *testing.T) {
	client := newTestClient(t, NewService(nil, nil))

	resp, err := client.ListGrounds(context.Background())
	if err != nil {
		t.Fatalf("ListGrounds: %v", err)
	}
	if len(resp.Grounds) != len(kb.DefaultGrounds()) {
		t.Fatalf("got %d grounds, want %d", len(resp.Grounds), len(kb.DefaultGrounds()))
	}
}
