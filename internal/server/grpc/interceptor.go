package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// loggingInterceptor logs every unary call with its outcome and turns
// handler panics into codes.Internal.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	start := time.Now()
	ctx = logging.WithFields(ctx, "rpc", info.FullMethod)

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "panic recovered", "panic", fmt.Sprint(p))
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}

		code := status.Code(err)
		args := []any{"code", code.String(), "latency", time.Since(start)}
		if code == codes.Internal || code == codes.Unavailable {
			s.logger.Warn(ctx, "grpc call failed", args...)
			return
		}
		s.logger.Debug(ctx, "grpc call", args...)
	}()

	return handler(ctx, req)
}
