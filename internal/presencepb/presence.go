package presencepb

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "shiftdesk.presence.Presence"

const (
	Presence_Ping_FullMethodName        = "/" + ServiceName + "/Ping"
	Presence_Heartbeat_FullMethodName   = "/" + ServiceName + "/Heartbeat"
	Presence_SetPresence_FullMethodName = "/" + ServiceName + "/SetPresence"
)

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type HeartbeatRequest struct{}

type HeartbeatResponse struct {
	Online bool `json:"online"`
}

type SetPresenceRequest struct {
	Online bool `json:"online"`
}

type SetPresenceResponse struct {
	Success bool `json:"success"`
}

// PresenceServer is the server API for the presence service.
type PresenceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	SetPresence(context.Context, *SetPresenceRequest) (*SetPresenceResponse, error)
}

func RegisterPresenceServer(s grpc.ServiceRegistrar, srv PresenceServer) {
	s.RegisterService(&Presence_ServiceDesc, srv)
}

func _Presence_Ping_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Presence_Ping_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PresenceServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Presence_Heartbeat_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Presence_Heartbeat_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PresenceServer).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Presence_SetPresence_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SetPresenceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).SetPresence(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Presence_SetPresence_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PresenceServer).SetPresence(ctx, req.(*SetPresenceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Presence_ServiceDesc is the grpc.ServiceDesc for the presence service.
var Presence_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PresenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: _Presence_Ping_Handler},
		{MethodName: "Heartbeat", Handler: _Presence_Heartbeat_Handler},
		{MethodName: "SetPresence", Handler: _Presence_SetPresence_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "presence",
}

// PresenceClient is the client API for the presence service.
type PresenceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error)
	SetPresence(ctx context.Context, in *SetPresenceRequest, opts ...grpc.CallOption) (*SetPresenceResponse, error)
}

type presenceClient struct {
	cc grpc.ClientConnInterface
}

func NewPresenceClient(cc grpc.ClientConnInterface) PresenceClient {
	return &presenceClient{cc}
}

func (c *presenceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *presenceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.invoke(ctx, Presence_Ping_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *presenceClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	out := new(HeartbeatResponse)
	if err := c.invoke(ctx, Presence_Heartbeat_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *presenceClient) SetPresence(ctx context.Context, in *SetPresenceRequest, opts ...grpc.CallOption) (*SetPresenceResponse, error) {
	out := new(SetPresenceResponse)
	if err := c.invoke(ctx, Presence_SetPresence_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
