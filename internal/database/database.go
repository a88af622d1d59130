// Package database persists sessions, page visits, and interaction events
// into SQLite for later heatmap/flow analysis.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-free SQLite

	"clicktrail/internal/models"
)

// ErrUnknownSession marks records addressed to a session the collector never
// confirmed.
var ErrUnknownSession = errors.New("unknown session")

type Database struct {
	db *sql.DB
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions(
	  id          INTEGER PRIMARY KEY,
	  name        TEXT    NOT NULL UNIQUE,
	  started_utc INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pages(
	  id         INTEGER PRIMARY KEY,
	  session_id INTEGER NOT NULL REFERENCES sessions(id),
	  url        TEXT    NOT NULL,
	  window_w   INTEGER NOT NULL,
	  window_h   INTEGER NOT NULL,
	  ts_utc     INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events(
	  id         INTEGER PRIMARY KEY,
	  session_id INTEGER NOT NULL REFERENCES sessions(id),
	  ts_utc     INTEGER NOT NULL,
	  url        TEXT    NOT NULL,
	  type       TEXT    NOT NULL CHECK (type IN ('click','hover')),
	  selector   TEXT    NOT NULL,
	  tag        TEXT    NOT NULL,
	  element_id TEXT,
	  classes    TEXT,
	  text       TEXT,
	  x          INTEGER NOT NULL,
	  y          INTEGER NOT NULL,
	  page_x     INTEGER NOT NULL,
	  page_y     INTEGER NOT NULL,
	  scroll_x   INTEGER NOT NULL,
	  scroll_y   INTEGER NOT NULL,
	  viewport_w INTEGER NOT NULL,
	  viewport_h INTEGER NOT NULL,
	  doc_w      INTEGER NOT NULL,
	  doc_h      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session_ts ON events(session_id, ts_utc);
	CREATE INDEX IF NOT EXISTS idx_events_type       ON events(type);
	CREATE INDEX IF NOT EXISTS idx_pages_session     ON pages(session_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// CreateSession registers a session and returns its confirmed name. A name
// that is already taken gets a short random suffix so the caller always gets
// a distinct session identity back.
func (d *Database) CreateSession(name string, startedUTC int64) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("session name cannot be empty")
	}
	confirmed := name
	var exists bool
	if err := d.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM sessions WHERE name = ?)`, name).Scan(&exists); err != nil {
		return "", fmt.Errorf("failed to check session name: %w", err)
	}
	if exists {
		confirmed = fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
	}
	if _, err := d.db.Exec(`INSERT INTO sessions(name, started_utc) VALUES(?,?)`, confirmed, startedUTC); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return confirmed, nil
}

func (d *Database) sessionID(name string) (int64, error) {
	var id int64
	err := d.db.QueryRow(`SELECT id FROM sessions WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSession, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up session: %w", err)
	}
	return id, nil
}

// InsertPage stores a page visit or lifecycle marker for the session.
func (d *Database) InsertPage(session string, page models.RecordPageRequest) error {
	id, err := d.sessionID(session)
	if err != nil {
		return err
	}
	w, h := parseWindowSize(page.WindowSize)
	if _, err := d.db.Exec(
		`INSERT INTO pages(session_id, url, window_w, window_h, ts_utc) VALUES(?,?,?,?,?)`,
		id, page.URL, w, h, page.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

func parseWindowSize(size string) (int, int) {
	var w, h int
	if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err != nil {
		return 0, 0
	}
	return w, h
}

func (d *Database) ValidateEvent(event models.InteractionEvent) error {
	if event.PageURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if event.Kind != models.KindClick && event.Kind != models.KindHover {
		return fmt.Errorf("invalid event type: %s", event.Kind)
	}
	if event.TSUTC <= 0 {
		return fmt.Errorf("timestamp must be positive")
	}
	return nil
}

// InsertEvents stores a batch in a single transaction. Any invalid event
// rolls back the whole batch.
func (d *Database) InsertEvents(session string, events []models.InteractionEvent) error {
	id, err := d.sessionID(session)
	if err != nil {
		return err
	}
	transaction, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	statement, err := transaction.Prepare(`INSERT INTO events(
	  session_id, ts_utc, url, type, selector, tag, element_id, classes, text,
	  x, y, page_x, page_y, scroll_x, scroll_y, viewport_w, viewport_h, doc_w, doc_h
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for _, event := range events {
		if err := d.ValidateEvent(event); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("invalid event: %w", err)
		}
		if _, err := statement.Exec(
			id, event.TSUTC, event.PageURL, string(event.Kind),
			event.Target.Selector, event.Target.Tag, event.Target.ID,
			strings.Join(event.Target.Classes, " "), event.Target.Excerpt,
			event.Position.X, event.Position.Y,
			event.Position.PageX, event.Position.PageY,
			event.Position.ScrollX, event.Position.ScrollY,
			event.Position.ViewportW, event.Position.ViewportH,
			event.Position.DocW, event.Position.DocH,
		); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
