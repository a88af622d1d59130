// Package capture turns raw pointer signals into normalized interaction
// events: the recorder builds the event record, the hover filter decides
// which movement signals are meaningful enough to record at all.
package capture

import (
	"math"

	"clicktrail/internal/clock"
	"clicktrail/internal/domtree"
	"clicktrail/internal/models"
)

// TruncationMarker is appended to excerpts cut at the cap.
const TruncationMarker = "…[truncated]"

// DefaultExcerptCap bounds the recorded text excerpt.
const DefaultExcerptCap = 500

// Highlighter applies a transient visual affordance to a clicked element.
// Implementations must not block; the recorder calls Flash inline on the
// capture path.
type Highlighter interface {
	Flash(selector string)
}

// Signal is the raw input sample handed to the pipeline by a capture source.
// Coordinates arrive unrounded; the recorder normalizes them.
type Signal struct {
	PageURL   string
	X, Y      float64
	PageX     float64
	PageY     float64
	ScrollX   float64
	ScrollY   float64
	ViewportW float64
	ViewportH float64
	DocW      float64
	DocH      float64
	TSUTC     int64 // milliseconds; zero means "stamp at record time"
}

// Recorder constructs InteractionEvent records from resolved targets.
type Recorder struct {
	excerptCap  int
	clk         clock.Clock
	highlighter Highlighter
}

// NewRecorder builds a recorder. A nil highlighter disables the click flash;
// excerptCap <= 0 selects the default.
func NewRecorder(excerptCap int, clk clock.Clock, highlighter Highlighter) *Recorder {
	if excerptCap <= 0 {
		excerptCap = DefaultExcerptCap
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Recorder{excerptCap: excerptCap, clk: clk, highlighter: highlighter}
}

// Record normalizes one accepted signal into an event. A nil target produces
// no event (ok=false); this is not an error condition.
func (r *Recorder) Record(target domtree.Node, sig Signal, kind models.EventKind) (models.InteractionEvent, bool) {
	if target == nil {
		return models.InteractionEvent{}, false
	}
	resolved := domtree.ResolveInteractive(target)
	selector := domtree.Selector(resolved)

	ts := sig.TSUTC
	if ts == 0 {
		ts = r.clk.Now().UnixMilli()
	}

	event := models.InteractionEvent{
		Kind:    kind,
		TSUTC:   ts,
		PageURL: sig.PageURL,
		Target: models.Target{
			Tag:      resolved.Tag(),
			ID:       resolved.ID(),
			Classes:  resolved.Classes(),
			Excerpt:  r.truncate(resolved.Text()),
			Selector: selector,
		},
		Position: models.Position{
			X:         round(sig.X),
			Y:         round(sig.Y),
			PageX:     round(sig.PageX),
			PageY:     round(sig.PageY),
			ScrollX:   round(sig.ScrollX),
			ScrollY:   round(sig.ScrollY),
			ViewportW: round(sig.ViewportW),
			ViewportH: round(sig.ViewportH),
			DocW:      round(sig.DocW),
			DocH:      round(sig.DocH),
		},
	}

	if kind == models.KindClick && r.highlighter != nil {
		r.highlighter.Flash(selector)
	}
	return event, true
}

func (r *Recorder) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= r.excerptCap {
		return text
	}
	return string(runes[:r.excerptCap]) + TruncationMarker
}

func round(v float64) int { return int(math.Round(v)) }
