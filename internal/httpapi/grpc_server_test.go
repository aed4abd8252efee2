package httpapi

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/health/grpc_health_v1"
)

type stubReadiness struct {
	err error
}

func (s stubReadiness) Check(context.Context) error { return s.err }

func TestHealthServerServing(t *testing.T) {
	srv := NewHealthServer(stubReadiness{})

	resp, err := srv.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.Status)
	}
}

func TestHealthServerNotServing(t *testing.T) {
	srv := NewHealthServer(stubReadiness{err: errors.New("db down")})

	resp, err := srv.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.Status)
	}
}
