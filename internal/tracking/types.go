package tracking

import "time"

// ErrorCode values stored for failures that are not decoder errors
const (
	ErrorCodeNone  = 0
	ErrorCodeOther = -1
)

// DecodeEvent is one decoder session recorded in the history
type DecodeEvent struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Command       string         `json:"command"`
	SourceURL     string         `json:"source_url"`
	FileType      string         `json:"file_type,omitempty"`
	SourceFormat  string         `json:"source_format,omitempty"`
	ClientFormat  string         `json:"client_format,omitempty"`
	PositionMode  string         `json:"position_mode,omitempty"`
	TotalFrames   int64          `json:"total_frames"`
	FramesDecoded int64          `json:"frames_decoded"`
	ErrorCode     int            `json:"error_code,omitempty"`
	Error         string         `json:"error,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
}

// Failed reports whether the session ended in an error
func (e *DecodeEvent) Failed() bool {
	return e.ErrorCode != ErrorCodeNone
}

// EventHook is called for every finished decoder session
type EventHook func(event *DecodeEvent)

// Tracker fans finished sessions out to its hooks
type Tracker struct {
	hooks []EventHook
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// NewTracker creates a Tracker with optional hooks
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithHook adds a hook, called in the order added
func WithHook(hook EventHook) TrackerOption {
	return func(t *Tracker) {
		t.hooks = append(t.hooks, hook)
	}
}

// Emit passes event to every hook
func (t *Tracker) Emit(event *DecodeEvent) {
	if t == nil || event == nil {
		return
	}
	for _, hook := range t.hooks {
		hook(event)
	}
}
