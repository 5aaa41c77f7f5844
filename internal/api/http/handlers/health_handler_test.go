package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/studiodesk/support-tickets/internal/observability"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyReportsEachDependency(t *testing.T) {
	env := newTestEnv(t)
	h := NewHealthHandler("support-tickets", "test", map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, nil)
	env.app.Get("/health/ready", h.Ready)

	status, body := env.do(t, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", status)
	}
	details, _ := body["error"].(map[string]any)["details"].(map[string]any)
	if details["postgres"] != "ok" || details["redis"] != "connection refused" {
		t.Fatalf("details = %v", details)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	metrics := observability.NewMetrics()
	metrics.RecordRequest("/api/v1/webhooks/:key", http.MethodPost, http.StatusCreated, 3*time.Millisecond)
	env.app.Get("/health/metrics", NewHealthHandler("support-tickets", "test", nil, metrics).Metrics)

	status, body := env.do(t, http.MethodGet, "/health/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	data, _ := body["data"].(map[string]any)
	requests, _ := data["requests"].([]any)
	if len(requests) != 1 || requests[0].(map[string]any)["key"] != "/api/v1/webhooks/:key|POST|201" {
		t.Fatalf("data = %v", data)
	}
}
