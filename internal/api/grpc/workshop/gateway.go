package workshop

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "workshop.v1.Gateway"

const (
	sessionMethod    = "/" + ServiceName + "/Session"
	uploadMethod     = "/" + ServiceName + "/Upload"
	deleteFileMethod = "/" + ServiceName + "/DeleteFile"
	publishMethod    = "/" + ServiceName + "/Publish"
	updateMethod     = "/" + ServiceName + "/Update"
)

type (
	// SessionServerStream is the server side of the Session stream.
	SessionServerStream = grpc.BidiStreamingServer[ClientFrame, ServerFrame]
	// SessionClientStream is the client side of the Session stream.
	SessionClientStream = grpc.BidiStreamingClient[ClientFrame, ServerFrame]
	// UploadServerStream is the server side of the Upload stream.
	UploadServerStream = grpc.ClientStreamingServer[UploadChunk, wrapperspb.BoolValue]
	// UploadClientStream is the client side of the Upload stream.
	UploadClientStream = grpc.ClientStreamingClient[UploadChunk, wrapperspb.BoolValue]
)

// GatewayServer is the server API of workshop.v1.Gateway.
type GatewayServer interface {
	Session(stream SessionServerStream) error
	Upload(stream UploadServerStream) error
	DeleteFile(ctx context.Context, req *DeleteFileRequest) (*emptypb.Empty, error)
	Publish(ctx context.Context, req *PublishRequest) (*wrapperspb.UInt64Value, error)
	Update(ctx context.Context, req *UpdateRequest) (*emptypb.Empty, error)
}

// GatewayServiceDesc describes workshop.v1.Gateway for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var GatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "DeleteFile",
			Handler:    deleteFileHandler,
		},
		{
			MethodName: "Publish",
			Handler:    publishHandler,
		},
		{
			MethodName: "Update",
			Handler:    updateHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "Upload",
			Handler:       uploadHandler,
			ClientStreams: true,
		},
	},
	Metadata: "workshop/v1/gateway",
}

// RegisterGatewayServer registers srv on the provided registrar.
func RegisterGatewayServer(registrar grpc.ServiceRegistrar, srv GatewayServer) {
	registrar.RegisterService(&GatewayServiceDesc, srv)
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GatewayServer).Session(&grpc.GenericServerStream[ClientFrame, ServerFrame]{ServerStream: stream})
}

func uploadHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GatewayServer).Upload(&grpc.GenericServerStream[UploadChunk, wrapperspb.BoolValue]{ServerStream: stream})
}

func deleteFileHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(DeleteFileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(GatewayServer).DeleteFile(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: deleteFileMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).DeleteFile(ctx, req.(*DeleteFileRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func publishHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(PublishRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(GatewayServer).Publish(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: publishMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).Publish(ctx, req.(*PublishRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func updateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(UpdateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(GatewayServer).Update(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: updateMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).Update(ctx, req.(*UpdateRequest))
	}

	return interceptor(ctx, in, info, handler)
}

// GatewayClient is the client API of workshop.v1.Gateway.
// Every call selects the cbor codec.
type GatewayClient struct {
	// cc is the connection used for calls.
	cc grpc.ClientConnInterface
}

// NewGatewayClient returns a client using cc.
func NewGatewayClient(cc grpc.ClientConnInterface) *GatewayClient {
	return &GatewayClient{
		cc: cc,
	}
}

// Session opens the bidirectional session stream.
func (c *GatewayClient) Session(ctx context.Context, opts ...grpc.CallOption) (SessionClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &GatewayServiceDesc.Streams[0], sessionMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}

	return &grpc.GenericClientStream[ClientFrame, ServerFrame]{ClientStream: stream}, nil
}

// Upload opens a client stream for one cloud file.
func (c *GatewayClient) Upload(ctx context.Context, opts ...grpc.CallOption) (UploadClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &GatewayServiceDesc.Streams[1], uploadMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}

	return &grpc.GenericClientStream[UploadChunk, wrapperspb.BoolValue]{ClientStream: stream}, nil
}

// DeleteFile removes a cloud file.
func (c *GatewayClient) DeleteFile(
	ctx context.Context,
	in *DeleteFileRequest,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, deleteFileMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

// Publish creates a listing and returns its id.
func (c *GatewayClient) Publish(
	ctx context.Context,
	in *PublishRequest,
	opts ...grpc.CallOption,
) (*wrapperspb.UInt64Value, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, publishMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

// Update replaces an existing listing.
func (c *GatewayClient) Update(
	ctx context.Context,
	in *UpdateRequest,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, updateMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
