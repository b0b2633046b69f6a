// Package grpc serves session introspection and health checks to
// sibling services.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthInterval = 10 * time.Second

type GRPCServer struct {
	address  string
	sessions SessionVerifier
	ping     func(ctx context.Context) error
	health   *health.Server
	logger   logging.Logger
}

// NewGRPCServer builds the server. ping, when not nil, drives the health
// status of the service.
func NewGRPCServer(address string, l logging.Logger, sessions SessionVerifier, ping func(ctx context.Context) error) *GRPCServer {
	return &GRPCServer{
		address:  address,
		sessions: sessions,
		ping:     ping,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

// newServer creates the grpc.Server with every service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	RegisterSessionIntrospectionServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

// checkHealth updates the health status from ping.
func (s *GRPCServer) checkHealth(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			s.logger.Warn(ctx, "storage unreachable", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(common.ServiceName, st)
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

// serve runs srv on listen until ctx is done.
func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()
	s.checkHealth(ctx)
	go s.watchHealth(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())
	return srv.Serve(listen)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}
