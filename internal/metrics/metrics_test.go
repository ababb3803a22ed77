package metrics

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marketbridge/gateway/internal/model"
)

func TestHandlerServesHealthAndMetrics(t *testing.T) {
	c := New()
	c.SetConnectedClients(2)
	c.IncDroppedMessage("slow_consumer")

	srv := httptest.NewServer(c.Handler("/metrics", func() model.Phase { return model.PhaseReady }))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	metricsResp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != 200 {
		t.Fatalf("metrics status = %d, want 200", metricsResp.StatusCode)
	}
}

func TestHealthDegradedWhenUpstreamNotReady(t *testing.T) {
	c := New()
	srv := httptest.NewServer(c.Handler("/metrics", func() model.Phase { return model.PhaseReconnecting }))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200 (degraded still 200)", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /health body: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("health status = %q, want degraded", body.Status)
	}
}

func TestRunPollsSamplerUntilCanceled(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	sample := Sampler{
		Subscriptions: func() int { calls++; return calls },
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, sample, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls < 1 {
		t.Fatalf("expected sampler to be polled at least once, got %d", calls)
	}
}
