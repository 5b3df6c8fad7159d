// Package grpc implements the gRPC transport for ransom.
//
// The server carries the standard grpc.health.v1 service, with the
// "ransom.Render" service name reporting whether sessions can run, and
// server reflection so grpcurl and friends can discover it.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nadzzz/ransom/internal/transport"
)

// ServiceName is the health-checked service.
const ServiceName = "ransom.Render"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	health *health.Server

	mu     sync.Mutex
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	h := health.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Transport{port: port, health: h}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// SetReady flips the health status of ServiceName.
func (t *Transport) SetReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus(ServiceName, status)
}

// Register attaches the transport's services to s.
func (t *Transport) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, t.health)
	reflection.Register(s)
}

// Listen starts the gRPC server. Sessions are not reachable over gRPC,
// only health and reflection.
func (t *Transport) Listen(ctx context.Context, _ transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis)
}

// Serve runs the gRPC server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	t.Register(s)

	t.mu.Lock()
	t.server = s
	t.mu.Unlock()

	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		s.GracefulStop()
	}()

	return s.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server != nil {
		t.health.Shutdown()
		t.server.GracefulStop()
	}
	return nil
}
