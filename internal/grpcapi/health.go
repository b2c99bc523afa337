// Package grpcapi serves the gRPC health protocol for door controllers and
// orchestrators that probe kragdb over gRPC.
package grpcapi

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// AccessService is the service name reported alongside the overall "".
const AccessService = "kragdb.v1.Access"

// CheckFunc reports whether the backing store is usable.
type CheckFunc func(ctx context.Context) error

type healthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	check  CheckFunc
	logger zerolog.Logger
}

// NewHealthServer answers Check by running check with a short timeout. A
// nil check always reports SERVING.
func NewHealthServer(check CheckFunc, logger zerolog.Logger) grpc_health_v1.HealthServer {
	return &healthServer{check: check, logger: logger}
}

func (h *healthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if req.GetService() != "" && req.GetService() != AccessService {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	st := grpc_health_v1.HealthCheckResponse_SERVING
	if h.check != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.check(ctx); err != nil {
			h.logger.Warn().Err(err).Str("service", req.GetService()).Msg("health check failed")
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
}

type Server struct {
	grpcServer *grpc.Server
	addr       string
	logger     zerolog.Logger
}

func NewServer(addr string, check CheckFunc, logger zerolog.Logger) *Server {
	gs := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	grpc_health_v1.RegisterHealthServer(gs, NewHealthServer(check, logger))
	return &Server{grpcServer: gs, addr: addr, logger: logger}
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	err := s.grpcServer.Serve(l)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown waits for in-flight calls until ctx is done, then stops hard.
func (s *Server) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

func loggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug().
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("dur", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}
