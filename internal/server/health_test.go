package server_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/vitals/internal/server"
)

func startHealth(t *testing.T, h *server.Health) healthpb.HealthClient {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = h.Serve(lis) }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func status(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestHealth_ServingWhenProbesPass(t *testing.T) {
	h := server.NewHealth("", 20*time.Millisecond, zaptest.NewLogger(t))
	h.AddProbe("world", func(context.Context) error { return nil })
	client := startHealth(t, h)

	require.Eventually(t, func() bool {
		return status(t, client, server.SimulationService) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, ""))
}

func TestHealth_FlipsWithProbe(t *testing.T) {
	var failing atomic.Bool
	h := server.NewHealth("", 20*time.Millisecond, zaptest.NewLogger(t))
	h.AddProbe("storage", func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	})
	client := startHealth(t, h)

	require.Eventually(t, func() bool {
		return status(t, client, server.SimulationService) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	failing.Store(true)
	require.Eventually(t, func() bool {
		return status(t, client, server.SimulationService) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealth_CheckReportsFailingProbe(t *testing.T) {
	h := server.NewHealth("", time.Second, zaptest.NewLogger(t))
	h.AddProbe("ok", func(context.Context) error { return nil })
	h.AddProbe("db", func(context.Context) error { return errors.New("down") })

	err := h.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe db")
	assert.NoError(t, func() error {
		h.AddProbe("db", func(context.Context) error { return nil })
		return h.Check(context.Background())
	}())
}

func TestHealth_StopIsIdempotent(t *testing.T) {
	h := server.NewHealth("", time.Second, zaptest.NewLogger(t))
	_ = startHealth(t, h)
	h.Stop()
	assert.NotPanics(t, h.Stop)
}
