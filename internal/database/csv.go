package database

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader matches the column layout the downstream heatmap tooling reads.
var csvHeader = []string{
	"timestamp", "url", "type", "selector", "tagName", "id", "className",
	"innerText", "x", "y", "pageX", "pageY", "scrollX", "scrollY",
	"viewportW", "viewportH", "docW", "docH",
}

// ExportCSV writes all events of a session, ordered by timestamp.
func (d *Database) ExportCSV(w io.Writer, session string) error {
	id, err := d.sessionID(session)
	if err != nil {
		return err
	}
	rows, err := d.db.Query(`SELECT
	  ts_utc, url, type, selector, tag, element_id, classes, text,
	  x, y, page_x, page_y, scroll_x, scroll_y, viewport_w, viewport_h, doc_w, doc_h
	FROM events WHERE session_id = ? ORDER BY ts_utc`, id)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for rows.Next() {
		var ts int64
		var url, kind, selector, tag, elemID, classes, text string
		var ints [10]int64
		dest := []any{&ts, &url, &kind, &selector, &tag, &elemID, &classes, &text}
		for i := range ints {
			dest = append(dest, &ints[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan event: %w", err)
		}
		record := []string{
			strconv.FormatInt(ts, 10), url, kind, selector, tag, elemID, classes, text,
		}
		for _, v := range ints {
			record = append(record, strconv.FormatInt(v, 10))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate events: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
