package tracking

import "log/slog"

// SlogHook logs every finished decoder session
type SlogHook struct {
	logger *slog.Logger
}

// NewSlogHook creates a SlogHook. A nil logger means the default logger.
func NewSlogHook(logger *slog.Logger) *SlogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHook{logger: logger}
}

// GetHook returns the EventHook for use with a Tracker
func (s *SlogHook) GetHook() EventHook {
	return func(event *DecodeEvent) {
		if event.Failed() {
			s.logger.Warn("decode session failed",
				"command", event.Command,
				"source_url", event.SourceURL,
				"error_code", event.ErrorCode,
				"error", event.Error)
			return
		}
		s.logger.Debug("decode session finished",
			"command", event.Command,
			"source_url", event.SourceURL,
			"file_type", event.FileType,
			"frames_decoded", event.FramesDecoded,
			"total_frames", event.TotalFrames)
	}
}

// NopHook discards events, for when history is disabled
type NopHook struct{}

func NewNopHook() *NopHook {
	return &NopHook{}
}

func (n *NopHook) GetHook() EventHook {
	return func(event *DecodeEvent) {}
}
