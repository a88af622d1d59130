// Package server is the collector service: it confirms sessions, receives
// page visits and interaction event batches, and persists them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pkt.systems/pslog"

	"clicktrail/internal/database"
	"clicktrail/internal/models"
)

type Server struct {
	db      *database.Database
	address string
	server  *http.Server
	log     pslog.Logger
}

func NewServer(db *database.Database, address string, logger pslog.Logger) *Server {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{
		db:      db,
		address: address,
		log:     logger,
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func (s *Server) handleStartSession(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req models.StartSessionRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.SessionName == "" {
		http.Error(w, "session_name is required", http.StatusBadRequest)
		return
	}
	confirmed, err := s.db.CreateSession(req.SessionName, time.Now().UnixMilli())
	if err != nil {
		s.log.With("err", err).Error("session create failed")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	s.log.Info("session opened", "session", confirmed)
	writeJSON(w, http.StatusOK, models.StartSessionResponse{SessionName: confirmed})
}

func (s *Server) handleRecordPage(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req models.RecordPageRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.SessionName == "" || req.URL == "" {
		http.Error(w, "session_name and url are required", http.StatusBadRequest)
		return
	}
	if err := s.db.InsertPage(req.SessionName, req); err != nil {
		if errors.Is(err, database.ErrUnknownSession) {
			http.Error(w, "Unknown session", http.StatusNotFound)
			return
		}
		s.log.With("err", err).Error("page insert failed")
		http.Error(w, "Failed to store page", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordEvent(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req models.RecordEventRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.SessionName == "" {
		http.Error(w, "session_name is required", http.StatusBadRequest)
		return
	}
	if req.Event != nil {
		req.Events = append(req.Events, *req.Event)
	}
	if len(req.Events) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.db.InsertEvents(req.SessionName, req.Events); err != nil {
		if errors.Is(err, database.ErrUnknownSession) {
			http.Error(w, "Unknown session", http.StatusNotFound)
			return
		}
		s.log.With("err", err).Error("event insert failed")
		http.Error(w, "Failed to store events", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent) // success, no body
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/verify", s.handleVerify)
	mux.HandleFunc("/start-session", s.handleStartSession)
	mux.HandleFunc("/record-page", s.handleRecordPage)
	mux.HandleFunc("/record-event", s.handleRecordEvent)
	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("collector listening", "address", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down collector")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownContext); err != nil {
		return err
	}
	s.log.Info("collector exited")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
