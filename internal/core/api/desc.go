package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Wire contract for querybuilder.v1.QueryBuilder.
 *
 * Requests and responses are google.protobuf.Struct documents whose shape
 * mirrors the JSON query model, so no generated message types are needed:
 *
 *   OpenSession   {query?, name?, record?}        -> session view + schema
 *   Apply         {sessionId, edits: [Edit...]}   -> session view + applied
 *   GetQuery      {sessionId, format?}            -> session view (+ sql/expr)
 *   Evaluate      {sessionId, payload}            -> match result
 *   SaveQuery     {sessionId, name}               -> {name, version}
 *   CloseSession  {sessionId}                     -> {}
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "querybuilder.v1.QueryBuilder"

// QueryBuilderServer is the server API for the QueryBuilder service.
type QueryBuilderServer interface {
	OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQuery(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveQuery(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(QueryBuilderServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(QueryBuilderServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(QueryBuilderServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the QueryBuilder service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryBuilderServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("OpenSession", QueryBuilderServer.OpenSession),
		unaryHandler("Apply", QueryBuilderServer.Apply),
		unaryHandler("GetQuery", QueryBuilderServer.GetQuery),
		unaryHandler("Evaluate", QueryBuilderServer.Evaluate),
		unaryHandler("SaveQuery", QueryBuilderServer.SaveQuery),
		unaryHandler("CloseSession", QueryBuilderServer.CloseSession),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "querybuilder/v1/querybuilder.proto",
}

// RegisterQueryBuilderServer registers srv on s.
func RegisterQueryBuilderServer(s grpc.ServiceRegistrar, srv QueryBuilderServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// QueryBuilderClient calls a remote QueryBuilder service.
type QueryBuilderClient struct {
	cc grpc.ClientConnInterface
}

// NewQueryBuilderClient wraps a client connection.
func NewQueryBuilderClient(cc grpc.ClientConnInterface) *QueryBuilderClient {
	return &QueryBuilderClient{cc: cc}
}

// Call invokes method with in and returns the response document.
func (c *QueryBuilderClient) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
