package session

import (
	"context"
	"time"

	"pkt.systems/pslog"
)

// DefaultHeartbeatInterval is the collector liveness probe period.
const DefaultHeartbeatInterval = 6 * time.Second

// Verifier probes collector liveness.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Heartbeat periodically probes the collector and drives the machine's
// connectivity field. Probe failures are never fatal; the next tick retries.
type Heartbeat struct {
	machine  *Machine
	verifier Verifier
	interval time.Duration
	log      pslog.Logger
}

// NewHeartbeat builds a heartbeat loop over the machine.
func NewHeartbeat(machine *Machine, verifier Verifier, interval time.Duration, logger pslog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Heartbeat{machine: machine, verifier: verifier, interval: interval, log: logger}
}

// Probe performs a single liveness check and applies the result.
func (h *Heartbeat) Probe(ctx context.Context) {
	err := h.verifier.Verify(ctx)
	if err != nil {
		h.log.With("err", err).Debug("heartbeat probe failed")
	}
	h.machine.SetConnected(ctx, err == nil)
}

// Run probes immediately and then on every interval until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) {
	h.Probe(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}
