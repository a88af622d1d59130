package models

import "fmt"

// EventKind classifies an interaction event.
type EventKind string

const (
	KindClick EventKind = "click"
	KindHover EventKind = "hover"
)

// Target describes the resolved element an interaction landed on. The id is
// recorded verbatim even when it is too unstable to anchor the selector.
type Target struct {
	Tag      string   `json:"tagName"`
	ID       string   `json:"id,omitempty"`
	Classes  []string `json:"className,omitempty"`
	Excerpt  string   `json:"innerText,omitempty"`
	Selector string   `json:"selector"`
}

// Position carries viewport and page coordinates plus the scroll and
// dimension context at capture time. All fields are rounded to whole pixels.
type Position struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	PageX     int `json:"pageX"`
	PageY     int `json:"pageY"`
	ScrollX   int `json:"scrollX"`
	ScrollY   int `json:"scrollY"`
	ViewportW int `json:"viewportW"`
	ViewportH int `json:"viewportH"`
	DocW      int `json:"docW"`
	DocH      int `json:"docH"`
}

// InteractionEvent is an immutable record of a single accepted click or hover.
type InteractionEvent struct {
	Kind     EventKind `json:"type"`
	TSUTC    int64     `json:"timestamp"` // milliseconds since epoch
	PageURL  string    `json:"url"`
	Target   Target    `json:"target"`
	Position Position  `json:"position"`
}

// PageVisit records a navigation (or a session lifecycle marker, with the
// marker label in URL).
type PageVisit struct {
	URL     string `json:"url"`
	WindowW int    `json:"-"`
	WindowH int    `json:"-"`
	TSUTC   int64  `json:"timestamp"`
}

// WindowSize renders the visit's window dimensions in the wire format.
func (v PageVisit) WindowSize() string {
	return fmt.Sprintf("%dx%d", v.WindowW, v.WindowH)
}

// SessionStatus is the lifecycle state of a recording session.
type SessionStatus string

const (
	StatusIdle    SessionStatus = "IDLE"
	StatusRunning SessionStatus = "RUNNING"
	StatusPaused  SessionStatus = "PAUSED"
)

// SessionState is the operating status snapshot published to observers.
// CollectorSessionID is non-empty only while RUNNING or PAUSED.
type SessionState struct {
	Connected          bool          `json:"isConnected"`
	Status             SessionStatus `json:"sessionStatus"`
	Name               string        `json:"sessionName"`
	CollectorSessionID string        `json:"collectorSessionId"`
}

// Wire types for the collector contract.

type StartSessionRequest struct {
	SessionName string `json:"session_name"`
}

type StartSessionResponse struct {
	SessionName string `json:"session_name"`
}

type RecordPageRequest struct {
	SessionName string `json:"session_name"`
	URL         string `json:"url"`
	WindowSize  string `json:"window_size"`
	Timestamp   int64  `json:"timestamp"`
}

// RecordEventRequest carries either a single event or a batch; the collector
// treats a lone event as a batch of one.
type RecordEventRequest struct {
	SessionName string             `json:"session_name"`
	Event       *InteractionEvent  `json:"event,omitempty"`
	Events      []InteractionEvent `json:"events,omitempty"`
}
