// Package grpc serves the standard health protocol so orchestrators can probe
// the game server and its catalog backend.
package grpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health key for the game service; "" covers the whole server.
const ServiceName = "p3markt.Game"

// Pinger is any dependency whose reachability decides readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	server *grpc.Server
	health *health.Server
	log    *zap.Logger
}

func NewServer(log *zap.Logger, opts ...grpc.ServerOption) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		server: grpc.NewServer(opts...),
		health: health.NewServer(),
		log:    log,
	}
	healthgrpc.RegisterHealthServer(s.server, s.health)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(s.server)

	s.SetServing(true)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Monitor pings deps every interval and flips the serving status when any of
// them fails. It returns when ctx is done.
func (s *Server) Monitor(ctx context.Context, interval time.Duration, deps ...Pinger) {
	if interval <= 0 || len(deps) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		healthy := s.check(ctx, interval, deps)
		if healthy != serving {
			s.log.Warn("serving status changed", zap.Bool("serving", healthy))
			serving = healthy
			s.SetServing(healthy)
		}
	}
}

func (s *Server) check(ctx context.Context, timeout time.Duration, deps []Pinger) bool {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, dep := range deps {
		if err := dep.Ping(pingCtx); err != nil {
			s.log.Debug("dependency ping failed", zap.Error(err))
			return false
		}
	}
	return true
}

// GracefulStop reports NOT_SERVING to all watchers before draining connections.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
