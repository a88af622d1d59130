package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pkt.systems/pslog"

	"clicktrail/internal/capture"
	"clicktrail/internal/models"
)

// stubCollector answers the collector contract well enough to drive the
// session machine: sessions are confirmed under their requested name and
// pages are accepted silently.
func stubCollector(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"connected"}`))
	})
	mux.HandleFunc("/start-session", func(w http.ResponseWriter, r *http.Request) {
		var req models.StartSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.StartSessionResponse{SessionName: req.SessionName})
	})
	mux.HandleFunc("/record-page", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/record-event", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestAgent(t *testing.T) (*Agent, *control) {
	t.Helper()

	collector := stubCollector(t)
	logger := pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:    pslog.ModeStructured,
		NoColor: true,
	})
	a := New(Config{
		BaseURL:           collector.URL,
		RequestTimeout:    5 * time.Second,
		StartURL:          "about:blank",
		ControlAddr:       "127.0.0.1:0",
		Settle:            500 * time.Millisecond,
		Throttle:          100 * time.Millisecond,
		ExcerptCap:        500,
		BatchLimit:        10,
		FlushTimeout:      3 * time.Second,
		SweepInterval:     5 * time.Second,
		HeartbeatInterval: 6 * time.Second,
	}, logger)
	return a, newControl(a, "127.0.0.1:0", logger)
}

func postIntent(t *testing.T, ctrl *control, intent sessionIntent) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("Failed to marshal intent: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/session", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	ctrl.routes().ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) models.SessionState {
	t.Helper()

	var state models.SessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	return state
}

func TestControlStatus(t *testing.T) {
	_, ctrl := newTestAgent(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	ctrl.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	state := decodeState(t, rec)
	if state.Status != models.StatusIdle || state.Connected {
		t.Errorf("unexpected initial state: %+v", state)
	}
}

func TestControlStartSession(t *testing.T) {
	a, ctrl := newTestAgent(t)
	a.machine.SetConnected(context.Background(), true)

	rec := postIntent(t, ctrl, sessionIntent{Name: "alpha", Status: models.StatusRunning})
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body.String())
	}
	state := decodeState(t, rec)
	if state.Status != models.StatusRunning {
		t.Errorf("status = %s, want RUNNING", state.Status)
	}
	if state.CollectorSessionID != "alpha" {
		t.Errorf("collector session id = %q, want alpha", state.CollectorSessionID)
	}
}

func TestControlStartWithoutName(t *testing.T) {
	a, ctrl := newTestAgent(t)
	a.machine.SetConnected(context.Background(), true)

	rec := postIntent(t, ctrl, sessionIntent{Status: models.StatusRunning})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", rec.Code)
	}
}

func TestControlStartDisconnected(t *testing.T) {
	_, ctrl := newTestAgent(t)

	rec := postIntent(t, ctrl, sessionIntent{Name: "alpha", Status: models.StatusRunning})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", rec.Code)
	}
}

func TestControlPauseAndResume(t *testing.T) {
	a, ctrl := newTestAgent(t)
	a.machine.SetConnected(context.Background(), true)
	postIntent(t, ctrl, sessionIntent{Name: "alpha", Status: models.StatusRunning})

	rec := postIntent(t, ctrl, sessionIntent{Status: models.StatusPaused})
	state := decodeState(t, rec)
	if state.Status != models.StatusPaused {
		t.Fatalf("status = %s, want PAUSED", state.Status)
	}
	if state.CollectorSessionID != "alpha" {
		t.Errorf("pause dropped the session id: %+v", state)
	}

	rec = postIntent(t, ctrl, sessionIntent{Status: models.StatusRunning})
	state = decodeState(t, rec)
	if state.Status != models.StatusRunning || state.CollectorSessionID != "alpha" {
		t.Errorf("resume did not restore the session: %+v", state)
	}
}

func TestControlEndSession(t *testing.T) {
	a, ctrl := newTestAgent(t)
	a.machine.SetConnected(context.Background(), true)
	postIntent(t, ctrl, sessionIntent{Name: "alpha", Status: models.StatusRunning})

	rec := postIntent(t, ctrl, sessionIntent{Status: models.StatusIdle})
	state := decodeState(t, rec)
	if state.Status != models.StatusIdle {
		t.Errorf("status = %s, want IDLE", state.Status)
	}
	if state.CollectorSessionID != "" || state.Name != "" {
		t.Errorf("session identity not cleared: %+v", state)
	}
}

func TestControlUnknownStatus(t *testing.T) {
	_, ctrl := newTestAgent(t)

	rec := postIntent(t, ctrl, sessionIntent{Status: "SLEEPING"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", rec.Code)
	}
}

func TestControlSignalsIgnoredWhileIdle(t *testing.T) {
	a, _ := newTestAgent(t)

	a.handleSignal("click", nil, capture.Signal{PageURL: "https://example.com"})
	if got := a.queue.Len(); got != 0 {
		t.Errorf("idle click reached the queue: %d", got)
	}
}
