package health

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the checker through the standard gRPC health service
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
}

// NewGRPCServer mirrors the checker's overall status into the gRPC health service
// under both the empty service name and service
func NewGRPCServer(checker *Checker, service string) *GRPCServer {
	hs := grpchealth.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	g := &GRPCServer{server: srv, health: hs}
	g.set(service, checker.IsSystemHealthy())
	checker.OnChange(func(healthy bool) { g.set(service, healthy) })
	return g
}

func (g *GRPCServer) set(service string, healthy bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(service, status)
}

// Serve listens on addr until ctx is done
func (g *GRPCServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		g.health.Shutdown()
		g.server.GracefulStop()
	}()

	return g.server.Serve(lis)
}

// Check answers a health query without going over the network
func (g *GRPCServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}
