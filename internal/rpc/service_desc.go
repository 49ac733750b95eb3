package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "propagation.v1.PropagationService"

// PropagationServiceServer is the server API for the propagation service.
type PropagationServiceServer interface {
	Horizon(context.Context, *HorizonRequest) (*HorizonResponse, error)
	PointToPoint(context.Context, *PointRequest) (*PointResponse, error)
	SweepDistance(context.Context, *DistanceSweepRequest) (*DistanceSweepResponse, error)
	SweepHeight(context.Context, *HeightSweepRequest) (*HeightSweepResponse, error)
	Calculate(context.Context, *CalculateRequest) (*CalculateResponse, error)
	GetRun(context.Context, *GetRunRequest) (*GetRunResponse, error)
	ListRuns(context.Context, *ListRunsRequest) (*ListRunsResponse, error)
	ListGrounds(context.Context, *emptypb.Empty) (*ListGroundsResponse, error)
}

// ServiceDesc describes PropagationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PropagationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Horizon", Handler: unaryHandler("Horizon", PropagationServiceServer.Horizon)},
		{MethodName: "PointToPoint", Handler: unaryHandler("PointToPoint", PropagationServiceServer.PointToPoint)},
		{MethodName: "SweepDistance", Handler: unaryHandler("SweepDistance", PropagationServiceServer.SweepDistance)},
		{MethodName: "SweepHeight", Handler: unaryHandler("SweepHeight", PropagationServiceServer.SweepHeight)},
		{MethodName: "Calculate", Handler: unaryHandler("Calculate", PropagationServiceServer.Calculate)},
		{MethodName: "GetRun", Handler: unaryHandler("GetRun", PropagationServiceServer.GetRun)},
		{MethodName: "ListRuns", Handler: unaryHandler("ListRuns", PropagationServiceServer.ListRuns)},
		{MethodName: "ListGrounds", Handler: unaryHandler("ListGrounds", PropagationServiceServer.ListGrounds)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "propagation/v1/propagation.json",
}

// RegisterPropagationServiceServer registers srv on s.
func RegisterPropagationServiceServer(s grpc.ServiceRegistrar, srv PropagationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(PropagationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(PropagationServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls PropagationService over a client connection using the JSON
// codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Horizon(ctx context.Context, in *HorizonRequest, opts ...grpc.CallOption) (*HorizonResponse, error) {
	return invoke[HorizonResponse](ctx, c.cc, "Horizon", in, opts)
}

func (c *Client) PointToPoint(ctx context.Context, in *PointRequest, opts ...grpc.CallOption) (*PointResponse, error) {
	return invoke[PointResponse](ctx, c.cc, "PointToPoint", in, opts)
}

func (c *Client) SweepDistance(ctx context.Context, in *DistanceSweepRequest, opts ...grpc.CallOption) (*DistanceSweepResponse, error) {
	return invoke[DistanceSweepResponse](ctx, c.cc, "SweepDistance", in, opts)
}

func (c *Client) SweepHeight(ctx context.Context, in *HeightSweepRequest, opts ...grpc.CallOption) (*HeightSweepResponse, error) {
	return invoke[HeightSweepResponse](ctx, c.cc, "SweepHeight", in, opts)
}

func (c *Client) Calculate(ctx context.Context, in *CalculateRequest, opts ...grpc.CallOption) (*CalculateResponse, error) {
	return invoke[CalculateResponse](ctx, c.cc, "Calculate", in, opts)
}

func (c *Client) GetRun(ctx context.Context, in *GetRunRequest, opts ...grpc.CallOption) (*GetRunResponse, error) {
	return invoke[GetRunResponse](ctx, c.cc, "GetRun", in, opts)
}

func (c *Client) ListRuns(ctx context.Context, in *ListRunsRequest, opts ...grpc.CallOption) (*ListRunsResponse, error) {
	return invoke[ListRunsResponse](ctx, c.cc, "ListRuns", in, opts)
}

func (c *Client) ListGrounds(ctx context.Context, opts ...grpc.CallOption) (*ListGroundsResponse, error) {
	return invoke[ListGroundsResponse](ctx, c.cc, "ListGrounds", &emptypb.Empty{}, opts)
}
