package monitor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "noisemonitor.v1.MonitorService"

// Full method names.
const (
	StartMethod     = "/" + ServiceName + "/Start"
	StopMethod      = "/" + ServiceName + "/Stop"
	GetStatusMethod = "/" + ServiceName + "/GetStatus"
)

// MonitorServiceServer is the server API for MonitorService.
type MonitorServiceServer interface {
	Start(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Stop(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterMonitorServiceServer registers srv with the gRPC server.
func RegisterMonitorServiceServer(s grpc.ServiceRegistrar, srv MonitorServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // Service descriptors are static by nature.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Start",
			Handler:    unaryHandler(StartMethod, MonitorServiceServer.Start),
		},
		{
			MethodName: "Stop",
			Handler:    unaryHandler(StopMethod, MonitorServiceServer.Stop),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(GetStatusMethod, MonitorServiceServer.GetStatus),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "noisemonitor/v1/monitor.proto",
}

// unaryCall is the shape shared by every MonitorService method.
type unaryCall func(MonitorServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

// unaryHandler adapts call to grpc.MethodHandler, honouring interceptors.
func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(MonitorServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			empty, _ := req.(*emptypb.Empty)
			return call(server, ctx, empty)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// MonitorServiceClient is the client API for MonitorService.
type MonitorServiceClient interface {
	Start(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type monitorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMonitorServiceClient creates a client stub on top of cc.
//
//nolint:ireturn // Mirrors generated gRPC client constructors.
func NewMonitorServiceClient(cc grpc.ClientConnInterface) MonitorServiceClient {
	return &monitorServiceClient{cc: cc}
}

func (c *monitorServiceClient) Start(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, StartMethod, in, opts...)
}

func (c *monitorServiceClient) Stop(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, StopMethod, in, opts...)
}

func (c *monitorServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, GetStatusMethod, in, opts...)
}

func (c *monitorServiceClient) invoke(
	ctx context.Context,
	method string,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
