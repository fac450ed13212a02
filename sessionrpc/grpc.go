package sessionrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "xdao.catchat.sessionrpc.v1.Session"

// SessionServer is the server API for the Session gRPC service.
//
// Messages are protobuf well-known types so no codegen is needed; views
// travel as JSON inside StringValue.
//
// Proto definition: session.proto.
type SessionServer interface {
	Connect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	SetName(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SubmitName(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Input(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	Send(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	State(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	WatchState(*emptypb.Empty, Session_WatchStateServer) error
	Watch(*wrapperspb.StringValue, Session_WatchServer) error
}

// UnimplementedSessionServer can be embedded to have forward compatible implementations.
type UnimplementedSessionServer struct{}

func (UnimplementedSessionServer) Connect(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Connect not implemented")
}
func (UnimplementedSessionServer) SetName(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetName not implemented")
}
func (UnimplementedSessionServer) SubmitName(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitName not implemented")
}
func (UnimplementedSessionServer) Input(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Input not implemented")
}
func (UnimplementedSessionServer) Send(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Send not implemented")
}
func (UnimplementedSessionServer) State(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method State not implemented")
}
func (UnimplementedSessionServer) WatchState(*emptypb.Empty, Session_WatchStateServer) error {
	return status.Error(codes.Unimplemented, "method WatchState not implemented")
}
func (UnimplementedSessionServer) Watch(*wrapperspb.StringValue, Session_WatchServer) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

// RegisterSessionServer registers the Session service on a gRPC server.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&Session_ServiceDesc, srv)
}

type Session_WatchStateServer interface {
	Send(*wrapperspb.StringValue) error
	grpc.ServerStream
}

type Session_WatchServer interface {
	Send(*wrapperspb.StringValue) error
	grpc.ServerStream
}

type stringStreamServer struct{ grpc.ServerStream }

func (x *stringStreamServer) Send(m *wrapperspb.StringValue) error { return x.ServerStream.SendMsg(m) }

// SessionClient is the client API for the Session gRPC service.
type SessionClient interface {
	Connect(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetName(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SubmitName(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Input(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Send(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	State(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	WatchState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (Session_WatchStateClient, error)
	Watch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Session_WatchClient, error)
}

type Session_WatchStateClient interface {
	Recv() (*wrapperspb.StringValue, error)
	grpc.ClientStream
}

type Session_WatchClient interface {
	Recv() (*wrapperspb.StringValue, error)
	grpc.ClientStream
}

type stringStreamClient struct{ grpc.ClientStream }

func (x *stringStreamClient) Recv() (*wrapperspb.StringValue, error) {
	m := new(wrapperspb.StringValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type sessionClient struct{ cc grpc.ClientConnInterface }

func NewSessionClient(cc grpc.ClientConnInterface) SessionClient { return &sessionClient{cc: cc} }

func (c *sessionClient) Connect(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Connect", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) SetName(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SetName", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) SubmitName(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SubmitName", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) Input(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Input", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) Send(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Send", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) State(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/State", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionClient) WatchState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (Session_WatchStateClient, error) {
	stream, err := c.cc.NewStream(ctx, &Session_ServiceDesc.Streams[0], "/"+serviceName+"/WatchState", opts...)
	if err != nil {
		return nil, err
	}
	x, err := openStream(stream, in)
	if err != nil {
		return nil, err
	}
	return x, nil
}

func (c *sessionClient) Watch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Session_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &Session_ServiceDesc.Streams[1], "/"+serviceName+"/Watch", opts...)
	if err != nil {
		return nil, err
	}
	x, err := openStream(stream, in)
	if err != nil {
		return nil, err
	}
	return x, nil
}

func openStream(stream grpc.ClientStream, in any) (*stringStreamClient, error) {
	x := &stringStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func _Session_Connect_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Connect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Connect"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServer).Connect(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Session_SetName_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).SetName(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SetName"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServer).SetName(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Session_SubmitName_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).SubmitName(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SubmitName"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServer).SubmitName(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Session_Input_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Input(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Input"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServer).Input(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Session_Send_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Send"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServer).Send(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Session_State_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).State(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/State"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServer).State(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Session_WatchState_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SessionServer).WatchState(in, &stringStreamServer{stream})
}

func _Session_Watch_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SessionServer).Watch(in, &stringStreamServer{stream})
}

// Session_ServiceDesc is the grpc.ServiceDesc for Session service.
var Session_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Connect", Handler: _Session_Connect_Handler},
		{MethodName: "SetName", Handler: _Session_SetName_Handler},
		{MethodName: "SubmitName", Handler: _Session_SubmitName_Handler},
		{MethodName: "Input", Handler: _Session_Input_Handler},
		{MethodName: "Send", Handler: _Session_Send_Handler},
		{MethodName: "State", Handler: _Session_State_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchState", Handler: _Session_WatchState_Handler, ServerStreams: true},
		{StreamName: "Watch", Handler: _Session_Watch_Handler, ServerStreams: true},
	},
	Metadata: "session.proto",
}
