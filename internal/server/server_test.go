package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"pkt.systems/pslog"

	"clicktrail/internal/database"
	"clicktrail/internal/models"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:    pslog.ModeStructured,
		NoColor: true,
	})
	return NewServer(db, "127.0.0.1:0", logger)
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, mux *http.ServeMux, name string) string {
	t.Helper()

	rec := postJSON(t, mux, "/start-session", models.StartSessionRequest{SessionName: name})
	if rec.Code != http.StatusOK {
		t.Fatalf("start-session returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.StartSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.SessionName
}

func TestHandleVerify(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "connected" {
		t.Errorf("status = %q, want connected", body["status"])
	}
}

func TestHandleStartSession(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	name := startSession(t, mux, "alpha")
	if name != "alpha" {
		t.Errorf("confirmed name = %q, want alpha", name)
	}

	// Same name again comes back disambiguated, never rejected.
	second := startSession(t, mux, "alpha")
	if second == "alpha" {
		t.Error("duplicate session name was not disambiguated")
	}
}

func TestHandleStartSessionEmptyName(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	rec := postJSON(t, mux, "/start-session", models.StartSessionRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestHandleStartSessionMethodNotAllowed(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/start-session", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestHandleRecordPage(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()
	name := startSession(t, mux, "alpha")

	rec := postJSON(t, mux, "/record-page", models.RecordPageRequest{
		SessionName: name,
		URL:         "https://example.com",
		WindowSize:  "1280x800",
		Timestamp:   1234,
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRecordPageUnknownSession(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	rec := postJSON(t, mux, "/record-page", models.RecordPageRequest{
		SessionName: "ghost",
		URL:         "https://example.com",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestHandleRecordPageInvalidJSON(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	req := httptest.NewRequest(http.MethodPost, "/record-page", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestHandleRecordEvent(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()
	name := startSession(t, mux, "alpha")

	events := []models.InteractionEvent{
		{
			Kind:    models.KindClick,
			TSUTC:   1000,
			PageURL: "https://example.com",
			Target:  models.Target{Tag: "button", Selector: "div#main > button:nth-of-type(1)"},
		},
		{
			Kind:    models.KindHover,
			TSUTC:   1500,
			PageURL: "https://example.com",
			Target:  models.Target{Tag: "a", Selector: "nav#top > a:nth-of-type(2)"},
		},
	}
	rec := postJSON(t, mux, "/record-event", models.RecordEventRequest{SessionName: name, Events: events})
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRecordEventSingleEvent(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()
	name := startSession(t, mux, "alpha")

	event := models.InteractionEvent{
		Kind:    models.KindClick,
		TSUTC:   1000,
		PageURL: "https://example.com",
		Target:  models.Target{Tag: "button"},
	}
	rec := postJSON(t, mux, "/record-event", models.RecordEventRequest{SessionName: name, Event: &event})
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRecordEventEmptyBatch(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()
	name := startSession(t, mux, "alpha")

	rec := postJSON(t, mux, "/record-event", models.RecordEventRequest{SessionName: name})
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
}

func TestHandleRecordEventUnknownSession(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()

	rec := postJSON(t, mux, "/record-event", models.RecordEventRequest{
		SessionName: "ghost",
		Events: []models.InteractionEvent{
			{Kind: models.KindClick, TSUTC: 1, PageURL: "https://example.com"},
		},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestHandleRecordEventInvalidEvent(t *testing.T) {
	srv := setupTestServer(t)
	mux := srv.setupRoutes()
	name := startSession(t, mux, "alpha")

	rec := postJSON(t, mux, "/record-event", models.RecordEventRequest{
		SessionName: name,
		Events: []models.InteractionEvent{
			{Kind: "scroll", TSUTC: 1, PageURL: "https://example.com"},
		},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}
