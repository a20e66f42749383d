package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SimulationService is the health service name reported for the simulation.
const SimulationService = "vitals.Simulation"

// Probe reports an error when a dependency is unhealthy.
type Probe func(ctx context.Context) error

// Health serves the standard gRPC health protocol. Registered probes run on an
// interval; the overall and SimulationService statuses are SERVING only while
// every probe passes.
type Health struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	grpc   *grpc.Server
	status *health.Server

	mu     sync.Mutex
	probes map[string]Probe
	done   chan struct{}
	once   sync.Once
}

// NewHealth creates a Health service listening on addr.
//
// Precondition: logger must be non-nil; interval must be > 0.
func NewHealth(addr string, interval time.Duration, logger *zap.Logger) *Health {
	if logger == nil || interval <= 0 {
		panic("server: NewHealth requires a logger and a positive interval")
	}
	h := &Health{
		addr:     addr,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
		grpc:     grpc.NewServer(),
		status:   health.NewServer(),
		probes:   make(map[string]Probe),
		done:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(h.grpc, h.status)
	h.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// AddProbe registers a named probe. Probes added after Start are picked up on
// the next interval.
func (h *Health) AddProbe(name string, p Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = p
}

// Check runs every probe once and updates the served status.
//
// Postcondition: returns the first failing probe's error, or nil.
func (h *Health) Check(ctx context.Context) error {
	h.mu.Lock()
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.Unlock()

	var firstErr error
	for name, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p(pctx)
		cancel()
		if err != nil {
			h.logger.Warn("health probe failed", zap.String("probe", name), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("probe %s: %w", name, err)
			}
		}
	}
	if firstErr != nil {
		h.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
	} else {
		h.setAll(healthpb.HealthCheckResponse_SERVING)
	}
	return firstErr
}

// Start listens on the configured address and serves until Stop.
func (h *Health) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	return h.Serve(lis)
}

// Serve serves on lis until Stop, probing on every interval.
func (h *Health) Serve(lis net.Listener) error {
	h.logger.Info("health server listening", zap.String("addr", lis.Addr().String()))
	go h.probeLoop()
	return h.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (h *Health) Stop() {
	h.once.Do(func() {
		close(h.done)
		h.status.Shutdown()
		h.grpc.GracefulStop()
	})
}

func (h *Health) probeLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			_ = h.Check(ctx)
		}
	}
}

func (h *Health) setAll(s healthpb.HealthCheckResponse_ServingStatus) {
	h.status.SetServingStatus("", s)
	h.status.SetServingStatus(SimulationService, s)
}
