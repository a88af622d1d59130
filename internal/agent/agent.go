// Package agent assembles the capture side: the browser source, the hover
// filter, the recorder, the batch queue, and the session machine, plus a
// small local control surface for driving the session.
package agent

import (
	"context"
	"time"

	"pkt.systems/pslog"

	"clicktrail/internal/batch"
	"clicktrail/internal/capture"
	"clicktrail/internal/chromedom"
	"clicktrail/internal/clock"
	"clicktrail/internal/collector"
	"clicktrail/internal/domtree"
	"clicktrail/internal/models"
	"clicktrail/internal/session"
)

const shutdownGrace = 5 * time.Second

// Config carries the runtime knobs the agent needs, already converted to
// native types.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration

	StartURL    string
	Headless    bool
	ControlAddr string
	Settle      time.Duration
	Throttle    time.Duration
	ExcerptCap  int
	Highlight   bool

	BatchLimit    int
	FlushTimeout  time.Duration
	SweepInterval time.Duration

	HeartbeatInterval time.Duration
}

type Agent struct {
	cfg Config
	log pslog.Logger

	client    *collector.Client
	source    *chromedom.Source
	machine   *session.Machine
	heartbeat *session.Heartbeat
	recorder  *capture.Recorder
	filter    *capture.HoverFilter
	queue     *batch.Queue
}

func New(cfg Config, logger pslog.Logger) *Agent {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	a := &Agent{cfg: cfg, log: logger}

	a.client = collector.NewClient(cfg.BaseURL, cfg.RequestTimeout)
	a.source = chromedom.NewSource(cfg.StartURL, cfg.Headless, logger)
	a.machine = session.New(a.client, a.source.Visit, logger)
	a.heartbeat = session.NewHeartbeat(a.machine, a.client, cfg.HeartbeatInterval, logger)

	var highlighter capture.Highlighter
	if cfg.Highlight {
		highlighter = a.source
	}
	clk := clock.System()
	a.recorder = capture.NewRecorder(cfg.ExcerptCap, clk, highlighter)
	a.filter = capture.NewHoverFilter(clk, cfg.Throttle, cfg.Settle, a.emitHover)
	a.queue = batch.New(clk, a.transmit,
		batch.WithLimit(cfg.BatchLimit),
		batch.WithFlushTimeout(cfg.FlushTimeout),
		batch.WithSweepInterval(cfg.SweepInterval),
	)
	return a
}

// handleSignal is the entry point for raw browser signals. Anything arriving
// outside a running session is discarded before it touches the pipeline.
func (a *Agent) handleSignal(kind string, target domtree.Node, sig capture.Signal) {
	if a.machine.Snapshot().Status != models.StatusRunning {
		return
	}
	switch kind {
	case "click":
		if event, ok := a.recorder.Record(target, sig, models.KindClick); ok {
			a.queue.Enqueue(event)
		}
	case "move":
		a.filter.Move(target, sig)
	}
}

// emitHover receives settled dwells from the filter. The session may have
// paused or ended while the dwell was pending, so the gate is re-checked.
func (a *Agent) emitHover(target domtree.Node, sig capture.Signal) {
	if a.machine.Snapshot().Status != models.StatusRunning {
		return
	}
	if event, ok := a.recorder.Record(target, sig, models.KindHover); ok {
		a.queue.Enqueue(event)
	}
}

// onNavigate records a page visit for top-frame navigations during a running
// session. The page is probed for window dimensions rather than trusting the
// navigation event alone.
func (a *Agent) onNavigate(url string) {
	id, ok := a.machine.Gate()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	defer cancel()

	visit, err := a.source.Visit(ctx)
	if err != nil {
		a.log.With("err", err).Warn("page probe failed, recording url only")
		visit = models.PageVisit{URL: url}
	}
	visit.TSUTC = time.Now().UnixMilli()
	if err := a.client.RecordPage(ctx, id, visit); err != nil {
		a.log.With("err", err).Error("page visit transmit failed", "url", visit.URL)
	}
}

// transmit is the queue sink. Batches flushed while no session is active are
// dropped; transmission failures are logged and the batch is not retried.
func (a *Agent) transmit(events []models.InteractionEvent) {
	id, ok := a.machine.Gate()
	if !ok {
		a.log.Warn("dropping batch, no active session", "events", len(events))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	defer cancel()
	if err := a.client.RecordEvents(ctx, id, events); err != nil {
		a.log.With("err", err).Error("batch transmit failed", "events", len(events))
		return
	}
	a.log.Debug("batch transmitted", "events", len(events))
}

// Run starts the browser and blocks until the context is canceled, the
// browser window closes, or the control server fails.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.source.Start(ctx, a.handleSignal, a.onNavigate); err != nil {
		return err
	}
	defer a.source.Stop()

	go a.heartbeat.Run(ctx)
	go a.queue.Run(ctx)

	ctrl := newControl(a, a.cfg.ControlAddr, a.log)
	ctrlErr := make(chan error, 1)
	go func() { ctrlErr <- ctrl.start(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case <-a.source.Done():
		a.log.Info("browser closed")
		cancel()
	case err := <-ctrlErr:
		runErr = err
		cancel()
	}

	a.shutdown()
	return runErr
}

// shutdown drains what it can while the collector session is still open,
// then closes the session.
func (a *Agent) shutdown() {
	a.filter.Cancel()
	a.queue.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.machine.End(ctx)
	a.log.Info("agent stopped")
}
