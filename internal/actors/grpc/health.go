package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceArgs are the mandatory args to instantiate the HealthService.
type HealthServiceArgs struct {
	// Pinger probes the backing store.
	Pinger pinger

	// Interval is the time between two probes. Each probe is bounded by it too.
	Interval time.Duration
}

// NewHealthService creates a HealthService reporting NOT_SERVING until the first successful probe.
func NewHealthService(args HealthServiceArgs) (*HealthService, error) {
	if args.Pinger == nil {
		return nil, errors.New("nil health pinger")
	}
	if args.Interval <= 0 {
		return nil, fmt.Errorf("non-positive health interval %s", args.Interval)
	}
	server := health.NewServer()
	server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthService{server: server, pinger: args.Pinger, interval: args.Interval}, nil
}

// HealthService implements the standard grpc.health.v1 service with a status driven by periodic
// store probes.
type HealthService struct {
	server   *health.Server
	pinger   pinger
	interval time.Duration
}

// Register exposes the health service on the gRPC server.
func (h *HealthService) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Probe pings the store once and records the outcome.
func (h *HealthService) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	err := h.pinger.Ping(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	return err
}

// Run probes the store every interval until ctx is done, then marks the service as shutting down.
func (h *HealthService) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.Probe(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("store health probe failed")
		}
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
		}
	}
}

// Check returns nil when the last probe succeeded.
func (h *HealthService) Check(ctx context.Context) error {
	resp, err := h.server.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service is %s", resp.GetStatus())
	}
	return nil
}

type pinger interface {
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
