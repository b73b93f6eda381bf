package tracking

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrRecorderDisabled is returned once a write has failed; the recorder
// stops touching the database for the rest of the process
var ErrRecorderDisabled = errors.New("decode history recorder is disabled")

// Recorder writes decode events to the history database
type Recorder struct {
	db        *sql.DB
	sessionID string
	disabled  bool
	now       func() time.Time
}

// NewRecorder creates a Recorder. An empty sessionID gets a random one.
func NewRecorder(db *sql.DB, sessionID string) *Recorder {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Recorder{db: db, sessionID: sessionID, now: time.Now}
}

// SessionID identifies the process that recorded the events
func (r *Recorder) SessionID() string { return r.sessionID }

// Record inserts event, filling in its ID, session and timestamp when they
// are unset
func (r *Recorder) Record(event *DecodeEvent) error {
	if r.disabled {
		return ErrRecorderDisabled
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.SessionID == "" {
		event.SessionID = r.sessionID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}

	context := event.Context
	if context == nil {
		context = map[string]any{}
	}
	contextJSON, err := json.Marshal(context)
	if err != nil {
		return fmt.Errorf("failed to marshal event context: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO decode_events (
			event_id, session_id, timestamp, command, source_url,
			file_type, source_format, client_format, position_mode,
			total_frames, frames_decoded, error_code, error, context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.SessionID,
		event.Timestamp.Unix(),
		event.Command,
		event.SourceURL,
		event.FileType,
		event.SourceFormat,
		event.ClientFormat,
		event.PositionMode,
		event.TotalFrames,
		event.FramesDecoded,
		event.ErrorCode,
		event.Error,
		string(contextJSON))
	if err != nil {
		slog.Warn("decode history write failed, disabling recorder", "event_id", event.ID, "error", err)
		r.disabled = true
		return fmt.Errorf("failed to record decode event: %w", err)
	}

	slog.Debug("decode event recorded",
		"event_id", event.ID,
		"session_id", event.SessionID,
		"source_url", event.SourceURL)
	return nil
}

// GetHook returns an EventHook that records events, logging failures
func (r *Recorder) GetHook() EventHook {
	return func(event *DecodeEvent) {
		if err := r.Record(event); err != nil && !errors.Is(err, ErrRecorderDisabled) {
			slog.Debug("decode event not recorded", "error", err)
		}
	}
}
