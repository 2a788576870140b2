package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "facerec.v1.FaceProjection"

const (
	fitMethod           = "/" + ServiceName + "/Fit"
	projectMethod       = "/" + ServiceName + "/Project"
	projectSealedMethod = "/" + ServiceName + "/ProjectSealed"
	reconstructMethod   = "/" + ServiceName + "/Reconstruct"
	statusMethod        = "/" + ServiceName + "/Status"
)

// FaceProjectionServer is the server API for the FaceProjection service.
type FaceProjectionServer interface {
	Fit(context.Context, *FitRequest) (*FitResponse, error)
	Project(context.Context, *ProjectRequest) (*ProjectResponse, error)
	ProjectSealed(context.Context, *ProjectSealedRequest) (*ProjectSealedResponse, error)
	Reconstruct(context.Context, *ReconstructRequest) (*ReconstructResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

// RegisterFaceProjectionServer registers srv with a gRPC server.
func RegisterFaceProjectionServer(s grpc.ServiceRegistrar, srv FaceProjectionServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FaceProjectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Fit", Handler: unaryHandler(fitMethod, FaceProjectionServer.Fit)},
		{MethodName: "Project", Handler: unaryHandler(projectMethod, FaceProjectionServer.Project)},
		{MethodName: "ProjectSealed", Handler: unaryHandler(projectSealedMethod, FaceProjectionServer.ProjectSealed)},
		{MethodName: "Reconstruct", Handler: unaryHandler(reconstructMethod, FaceProjectionServer.Reconstruct)},
		{MethodName: "Status", Handler: unaryHandler(statusMethod, FaceProjectionServer.Status)},
	},
	Streams: []grpc.StreamDesc{},
}

// unaryHandler adapts a typed method expression to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(FaceProjectionServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FaceProjectionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FaceProjectionServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
