package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	IntrospectionServiceName = "gophauth.v1.SessionIntrospection"
	VerifyFullMethod         = "/" + IntrospectionServiceName + "/Verify"
)

// SessionVerifier resolves a session token to its live session row.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*models.Session, error)
}

// SessionIntrospectionServer lets sibling services check a session token.
// The request is the raw token; the response describes the session.
type SessionIntrospectionServer interface {
	Verify(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error)
}

var introspectionServiceDesc = grpc.ServiceDesc{
	ServiceName: IntrospectionServiceName,
	HandlerType: (*SessionIntrospectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: verifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/v1/introspection.proto",
}

func verifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionIntrospectionServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionIntrospectionServer).Verify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterSessionIntrospectionServer registers impl on s.
func RegisterSessionIntrospectionServer(s grpc.ServiceRegistrar, impl SessionIntrospectionServer) {
	s.RegisterService(&introspectionServiceDesc, impl)
}

// IntrospectionClient calls SessionIntrospection on a remote server.
type IntrospectionClient struct {
	cc grpc.ClientConnInterface
}

func NewIntrospectionClient(cc grpc.ClientConnInterface) *IntrospectionClient {
	return &IntrospectionClient{cc: cc}
}

func (c *IntrospectionClient) Verify(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, VerifyFullMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify implements SessionIntrospectionServer.
func (s *GRPCServer) Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	token := req.GetValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	session, err := s.sessions.VerifySession(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		s.logger.Error(ctx, "session introspection failed", "error", err)
		return nil, status.Error(codes.Unavailable, "storage unavailable")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":     true,
		"sessionId": session.ID,
		"userId":    session.UserID,
		"deviceId":  session.DeviceID,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return resp, nil
}
