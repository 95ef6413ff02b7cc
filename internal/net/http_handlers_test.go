package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"arena/server/internal/hub"
	"arena/server/internal/sim"
	"arena/server/internal/telemetry"
)

type idleEngine struct{}

func (idleEngine) Enqueue(sim.Command) (bool, string) { return true, "" }
func (idleEngine) RequestFull()                       {}

func TestHealthReportsOK(t *testing.T) {
	handler := NewHTTPHandler(hub.New(idleEngine{}, hub.Config{}), HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsListsSessionsAndCounters(t *testing.T) {
	h := hub.New(idleEngine{}, hub.Config{})
	if _, err := h.Join(nil); err != nil {
		t.Fatalf("join: %v", err)
	}
	counters := telemetry.NewCounters()
	counters.Add(sim.MetricTicks, 7)

	handler := NewHTTPHandler(h, HTTPHandlerConfig{Counters: counters, TickRate: 20})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload struct {
		TickRate  int               `json:"tickRate"`
		Sessions  []hub.SessionInfo `json:"sessions"`
		Telemetry map[string]uint64 `json:"telemetry"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.TickRate != 20 || len(payload.Sessions) != 1 || payload.Sessions[0].Codec != "json" {
		t.Fatalf("unexpected diagnostics %s", resp.Body.String())
	}
	if payload.Telemetry[sim.MetricTicks] != 7 {
		t.Fatalf("expected tick counter in telemetry, got %v", payload.Telemetry)
	}
}

func TestDiagnosticsRejectsPost(t *testing.T) {
	handler := NewHTTPHandler(hub.New(idleEngine{}, hub.Config{}), HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/diagnostics", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
