package capture

import (
	"sync"
	"time"

	"clicktrail/internal/clock"
	"clicktrail/internal/domtree"
)

// Filter defaults; all of them are configurable through appconfig.
const (
	DefaultThrottleInterval = 100 * time.Millisecond
	DefaultSettleDelay      = 500 * time.Millisecond
)

// HoverFilter coalesces pointer movement into at most one hover record per
// distinct dwell. It is a small state machine: idle, or pending on a tracked
// target with a settle deadline. Movement signals inside the throttle window
// are dropped, not queued. Clicks never pass through this filter.
type HoverFilter struct {
	mu       sync.Mutex
	clk      clock.Clock
	throttle time.Duration
	settle   time.Duration
	emit     func(target domtree.Node, sig Signal)

	lastEval   time.Time
	evaluated  bool
	current    domtree.Node
	currentSel string
	currentSig Signal
	pending    bool
	timer      clock.Timer
}

// NewHoverFilter builds a filter that calls emit once per settled dwell.
func NewHoverFilter(clk clock.Clock, throttle, settle time.Duration, emit func(domtree.Node, Signal)) *HoverFilter {
	if clk == nil {
		clk = clock.System()
	}
	if throttle <= 0 {
		throttle = DefaultThrottleInterval
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &HoverFilter{clk: clk, throttle: throttle, settle: settle, emit: emit}
}

// Move feeds one raw pointer-movement signal into the filter.
func (f *HoverFilter) Move(target domtree.Node, sig Signal) {
	f.mu.Lock()
	now := f.clk.Now()
	if f.evaluated && now.Sub(f.lastEval) < f.throttle {
		f.mu.Unlock()
		return
	}
	f.lastEval = now
	f.evaluated = true

	var resolved domtree.Node
	var sel string
	if target != nil {
		resolved = domtree.ResolveInteractive(target)
		sel = domtree.Selector(resolved)
	}
	// Sources hand over a fresh node chain per signal, so the tracked target
	// is compared structurally, by selector.
	if resolved != nil && f.current != nil && sel == f.currentSel {
		// Same dwell: the pending settle timer, if any, keeps running. A
		// dwell that already settled does not settle again.
		f.mu.Unlock()
		return
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.current = resolved
	f.currentSel = sel
	f.currentSig = sig
	f.pending = false
	if resolved != nil {
		f.pending = true
		f.timer = f.clk.AfterFunc(f.settle, f.settled)
	}
	f.mu.Unlock()
}

// settled fires when the pointer has rested on the tracked target for the
// full settle delay.
func (f *HoverFilter) settled() {
	f.mu.Lock()
	if !f.pending {
		f.mu.Unlock()
		return
	}
	f.pending = false
	f.timer = nil
	target := f.current
	sig := f.currentSig
	emit := f.emit
	f.mu.Unlock()
	if emit != nil && target != nil {
		emit(target, sig)
	}
}

// Cancel drops any pending settle and forgets the tracked target.
func (f *HoverFilter) Cancel() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.pending = false
	f.current = nil
	f.currentSel = ""
	f.mu.Unlock()
}
