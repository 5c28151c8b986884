package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExportsCountersAfterIncrement(t *testing.T) {
	m := New()
	m.HeartbeatAccepted()
	m.HeartbeatAccepted()
	m.AnnounceAccepted()
	m.SetRegistrySize(5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	called := false
	m.Handler(func() { called = true }).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected updateGauges callback to run before scrape")
	}
	body := rec.Body.String()
	if !strings.Contains(body, "fleetcore_heartbeats_accepted_total 2") {
		t.Fatalf("expected heartbeats_accepted_total to read 2, body:\n%s", body)
	}
	if !strings.Contains(body, "fleetcore_announces_accepted_total 1") {
		t.Fatalf("expected announces_accepted_total to read 1, body:\n%s", body)
	}
	if !strings.Contains(body, "fleetcore_registry_size 5") {
		t.Fatalf("expected registry_size to read 5, body:\n%s", body)
	}
}

func TestMetricsSatisfiesHeartbeatInterface(t *testing.T) {
	var _ interface {
		HeartbeatAccepted()
		HeartbeatRejected()
		AnnounceAccepted()
	} = New()
}
