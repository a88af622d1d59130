package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pkt.systems/pslog"

	"clicktrail/internal/models"
	"clicktrail/internal/session"
)

// control is the local HTTP surface for driving the session: a UI or script
// reads /status and posts desired states to /session.
type control struct {
	agent  *Agent
	addr   string
	server *http.Server
	log    pslog.Logger
}

func newControl(agent *Agent, addr string, logger pslog.Logger) *control {
	return &control{agent: agent, addr: addr, log: logger}
}

// sessionIntent is the desired state posted by a controller. Name is applied
// first when present; Status is the state to move toward.
type sessionIntent struct {
	Status models.SessionStatus `json:"status,omitempty"`
	Name   string               `json:"name,omitempty"`
}

func (c *control) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, c.agent.machine.Snapshot())
}

func (c *control) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var intent sessionIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if intent.Name != "" {
		c.agent.machine.SetName(intent.Name)
	}
	if intent.Status != "" {
		if err := c.apply(r.Context(), intent.Status); err != nil {
			http.Error(w, err.Error(), statusCode(err))
			return
		}
	}
	writeJSON(w, http.StatusOK, c.agent.machine.Snapshot())
}

// apply moves the machine toward the desired status from wherever it is.
func (c *control) apply(ctx context.Context, desired models.SessionStatus) error {
	current := c.agent.machine.Snapshot().Status
	switch desired {
	case models.StatusRunning:
		if current == models.StatusPaused {
			c.agent.machine.Resume(ctx)
			return nil
		}
		return c.agent.machine.Start(ctx)
	case models.StatusPaused:
		c.agent.machine.Pause(ctx)
		return nil
	case models.StatusIdle:
		// Ending implies draining whatever is queued first.
		c.agent.filter.Cancel()
		c.agent.queue.Flush()
		c.agent.machine.End(ctx)
		return nil
	default:
		return errUnknownStatus
	}
}

var errUnknownStatus = errors.New("unknown session status")

func statusCode(err error) int {
	switch {
	case errors.Is(err, session.ErrNoName), errors.Is(err, errUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotIdle), errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrDisconnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (c *control) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", c.handleStatus)
	mux.HandleFunc("/session", c.handleSession)
	return mux
}

// start serves until ctx is canceled, then shuts down gracefully.
func (c *control) start(ctx context.Context) error {
	c.server = &http.Server{
		Addr:         c.addr,
		Handler:      c.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info("control listening", "address", c.addr)
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return c.server.Shutdown(shutdownContext)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
