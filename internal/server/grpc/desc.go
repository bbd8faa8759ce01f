package grpc

import (
	"context"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// unary adapts a typed handler to grpc.MethodDesc. The request is decoded
// by the JSON codec, then passed through the interceptor chain.
func unary[Req, Resp any](name string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed request")
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodRegister, (*GRPCServer).Register),
		unary(api.MethodGetSalt, (*GRPCServer).GetSalt),
		unary(api.MethodLogin, (*GRPCServer).Login),
		unary(api.MethodRefreshToken, (*GRPCServer).RefreshToken),
		unary(api.MethodPing, (*GRPCServer).Ping),
		unary(api.MethodMe, (*GRPCServer).Me),
		unary(api.MethodCreateIssue, (*GRPCServer).CreateIssue),
		unary(api.MethodGetIssue, (*GRPCServer).GetIssue),
		unary(api.MethodListIssues, (*GRPCServer).ListIssues),
		unary(api.MethodUpdateStatus, (*GRPCServer).UpdateStatus),
		unary(api.MethodAssignIssue, (*GRPCServer).AssignIssue),
		unary(api.MethodUpvote, (*GRPCServer).Upvote),
		unary(api.MethodListStaff, (*GRPCServer).ListStaff),
		unary(api.MethodCreateStaff, (*GRPCServer).CreateStaff),
		unary(api.MethodAnalytics, (*GRPCServer).Analytics),
		unary(api.MethodPhotoURL, (*GRPCServer).PhotoURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "civicreport.v1",
}
