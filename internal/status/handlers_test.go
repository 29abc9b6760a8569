package status

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"standx-mm/internal/config"
	"standx-mm/internal/engine"
)

type fakeProvider struct {
	full          engine.FullStatus
	events        chan engine.Event
	lastUpdate    config.RuntimeUpdate
	lastSwitch    string
	switchErr     error
	applyErr      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		full:   engine.FullStatus{Status: engine.StatusRunning, Symbol: "BTC-PERP", MidPrice: 100},
		events: make(chan engine.Event, 4),
	}
}

func (f *fakeProvider) GetFullStatus() engine.FullStatus { return f.full }
func (f *fakeProvider) Events() <-chan engine.Event       { return f.events }
func (f *fakeProvider) ApplyRuntimeUpdate(u config.RuntimeUpdate) error {
	f.lastUpdate = u
	return f.applyErr
}
func (f *fakeProvider) SwitchSymbol(symbol string) error {
	f.lastSwitch = symbol
	return f.switchErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHandlers(p Provider) *Handlers {
	cfg := &config.Config{
		Strategy: config.StrategyConfig{SpreadBps: 20, RequoteThresholdBps: 5, RefreshInterval: time.Second},
		Risk:     config.RiskConfig{MaxPosition: 10},
	}
	return NewHandlers(p, cfg, NewHub(testLogger()), testLogger())
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	h := testHandlers(newFakeProvider())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleStatusReturnsSnapshot(t *testing.T) {
	t.Parallel()
	h := testHandlers(newFakeProvider())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.Symbol != "BTC-PERP" {
		t.Errorf("Symbol = %q, want BTC-PERP", snap.Symbol)
	}
}

func TestHandleConfigUpdateAppliesStrategyFields(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()
	h := testHandlers(p)

	spread := 35
	body, _ := json.Marshal(config.RuntimeUpdate{SpreadBps: &spread})
	req := httptest.NewRequest(http.MethodPost, "/api/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleConfigUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if p.lastUpdate.SpreadBps == nil || *p.lastUpdate.SpreadBps != 35 {
		t.Errorf("lastUpdate.SpreadBps = %v, want 35", p.lastUpdate.SpreadBps)
	}
}

func TestHandleConfigUpdateSymbolGoesThroughSwitch(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()
	h := testHandlers(p)

	symbol := "ETH-PERP"
	body, _ := json.Marshal(config.RuntimeUpdate{Symbol: &symbol})
	req := httptest.NewRequest(http.MethodPost, "/api/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleConfigUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if p.lastSwitch != "ETH-PERP" {
		t.Errorf("lastSwitch = %q, want ETH-PERP", p.lastSwitch)
	}
}

func TestHandleConfigUpdateRejectsEmptyBody(t *testing.T) {
	t.Parallel()
	h := testHandlers(newFakeProvider())

	body, _ := json.Marshal(config.RuntimeUpdate{})
	req := httptest.NewRequest(http.MethodPost, "/api/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleConfigUpdate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an empty update", rec.Code)
	}
}

func TestHandleConfigUpdatePropagatesSwitchError(t *testing.T) {
	t.Parallel()
	p := newFakeProvider()
	p.switchErr = errTest
	h := testHandlers(p)

	symbol := "DOGE-PERP"
	body, _ := json.Marshal(config.RuntimeUpdate{Symbol: &symbol})
	req := httptest.NewRequest(http.MethodPost, "/api/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleConfigUpdate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on switch error", rec.Code)
	}
}

var errTest = &testError{"symbol not supported"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
