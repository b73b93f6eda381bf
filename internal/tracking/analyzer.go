package tracking

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// FileTypeCount aggregates events for one container type
type FileTypeCount struct {
	FileType      string `json:"file_type"`
	Events        int    `json:"events"`
	Failed        int    `json:"failed"`
	FramesDecoded int64  `json:"frames_decoded"`
}

// Summary aggregates the events matching a filter
type Summary struct {
	Events        int             `json:"events"`
	Failed        int             `json:"failed"`
	Sources       int             `json:"sources"`
	FramesDecoded int64           `json:"frames_decoded"`
	ByFileType    []FileTypeCount `json:"by_file_type"`
}

// ListEvents returns matching events, newest first
func ListEvents(db *sql.DB, filter QueryFilter) ([]DecodeEvent, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT event_id, session_id, timestamp, command, source_url,
		       file_type, source_format, client_format, position_mode,
		       total_frames, frames_decoded, error_code, error, context
		FROM decode_events`
	where, args := filter.BuildWhereClause()
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY timestamp DESC, id DESC" + filter.limitClause()

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decode events: %w", err)
	}
	defer rows.Close()

	var events []DecodeEvent
	for rows.Next() {
		var e DecodeEvent
		var ts int64
		var contextJSON string
		err := rows.Scan(&e.ID, &e.SessionID, &ts, &e.Command, &e.SourceURL,
			&e.FileType, &e.SourceFormat, &e.ClientFormat, &e.PositionMode,
			&e.TotalFrames, &e.FramesDecoded, &e.ErrorCode, &e.Error, &contextJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decode event row: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		if contextJSON != "" && contextJSON != "{}" {
			if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
				return nil, fmt.Errorf("failed to parse context of event %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decode events: %w", err)
	}
	return events, nil
}

// Summarize aggregates matching events. Limit and Offset are ignored.
func Summarize(db *sql.DB, filter QueryFilter) (*Summary, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	where, args := filter.BuildWhereClause()
	if where != "" {
		where = " WHERE " + where
	}

	summary := &Summary{}
	err := db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN error_code != 0 THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT source_url),
		       COALESCE(SUM(frames_decoded), 0)
		FROM decode_events`+where, args...).
		Scan(&summary.Events, &summary.Failed, &summary.Sources, &summary.FramesDecoded)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize decode events: %w", err)
	}

	rows, err := db.Query(`
		SELECT file_type,
		       COUNT(*) AS events,
		       SUM(CASE WHEN error_code != 0 THEN 1 ELSE 0 END),
		       SUM(frames_decoded)
		FROM decode_events`+where+`
		GROUP BY file_type
		ORDER BY events DESC, file_type`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group decode events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c FileTypeCount
		if err := rows.Scan(&c.FileType, &c.Events, &c.Failed, &c.FramesDecoded); err != nil {
			return nil, fmt.Errorf("failed to scan file type row: %w", err)
		}
		summary.ByFileType = append(summary.ByFileType, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file type rows: %w", err)
	}
	return summary, nil
}
