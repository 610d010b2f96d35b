package rpc

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The Store service uses only well-known protobuf types as messages.
//
//   Get(StringValue seguid) returns (Struct record)
//   ByID(StringValue id) returns (Struct record)
//   Merge(Struct record) returns (Int32Value outcome)
//   ListSeguids(StringValue start) returns (stream StringValue seguid)
//
// A record Struct has a string "seguid" field and a list "ids" field.

const serviceName = "seguid.Store"

// StoreServer is the server API for the Store service.
type StoreServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ByID(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Merge(context.Context, *structpb.Struct) (*wrapperspb.Int32Value, error)
	ListSeguids(*wrapperspb.StringValue, Store_ListSeguidsServer) error
}

// UnimplementedStoreServer can be embedded to have forward compatible implementations.
type UnimplementedStoreServer struct{}

func (UnimplementedStoreServer) Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Get not implemented")
}

func (UnimplementedStoreServer) ByID(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ByID not implemented")
}

func (UnimplementedStoreServer) Merge(context.Context, *structpb.Struct) (*wrapperspb.Int32Value, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Merge not implemented")
}

func (UnimplementedStoreServer) ListSeguids(*wrapperspb.StringValue, Store_ListSeguidsServer) error {
	return status.Errorf(codes.Unimplemented, "method ListSeguids not implemented")
}

// Store_ListSeguidsServer is the server side of the ListSeguids stream.
type Store_ListSeguidsServer interface {
	Send(*wrapperspb.StringValue) error
	grpc.ServerStream
}

type storeListSeguidsServer struct {
	grpc.ServerStream
}

func (x *storeListSeguidsServer) Send(m *wrapperspb.StringValue) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterStoreServer registers srv with s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&Store_ServiceDesc, srv)
}

func _Store_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/Get",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_ByID_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).ByID(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/ByID",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).ByID(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_Merge_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Merge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/Merge",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Merge(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_ListSeguids_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(StoreServer).ListSeguids(m, &storeListSeguidsServer{stream})
}

// Store_ServiceDesc is the grpc.ServiceDesc for the Store service.
var Store_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: _Store_Get_Handler},
		{MethodName: "ByID", Handler: _Store_ByID_Handler},
		{MethodName: "Merge", Handler: _Store_Merge_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ListSeguids",
			Handler:       _Store_ListSeguids_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "seguid/store.proto",
}

// StoreClient is the client API for the Store service.
type StoreClient interface {
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ByID(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Merge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error)
	ListSeguids(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Store_ListSeguidsClient, error)
}

type storeClient struct {
	cc grpc.ClientConnInterface
}

// NewStoreClient produces a StoreClient on cc.
func NewStoreClient(cc grpc.ClientConnInterface) StoreClient {
	return &storeClient{cc}
}

func (c *storeClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) ByID(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/ByID", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) Merge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error) {
	out := new(wrapperspb.Int32Value)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/Merge", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) ListSeguids(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Store_ListSeguidsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Store_ServiceDesc.Streams[0], "/"+serviceName+"/ListSeguids", opts...)
	if err != nil {
		return nil, err
	}
	x := &storeListSeguidsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Store_ListSeguidsClient is the client side of the ListSeguids stream.
type Store_ListSeguidsClient interface {
	Recv() (*wrapperspb.StringValue, error)
	grpc.ClientStream
}

type storeListSeguidsClient struct {
	grpc.ClientStream
}

func (x *storeListSeguidsClient) Recv() (*wrapperspb.StringValue, error) {
	m := new(wrapperspb.StringValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
