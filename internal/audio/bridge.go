package audio

import (
	"errors"
	"io"
	"log/slog"

	"tonearm.click/internal/toolbox"
)

// BackendBridge lets the toolbox pull bytes from a ByteSource through its
// read and size callbacks. It keeps no buffer and never retries; a short
// read is handed to the toolbox as is.
type BackendBridge struct {
	source ByteSource
}

// NewBackendBridge binds a bridge to source
func NewBackendBridge(source ByteSource) *BackendBridge {
	return &BackendBridge{source: source}
}

// ReadAt satisfies toolbox.ReadFunc. A request at any position other than
// the source's current offset needs a seek; sources that cannot seek get
// StatusOperationNotSupported and are not read.
func (b *BackendBridge) ReadAt(position int64, buf []byte) (int, toolbox.Status) {
	if position != b.source.Offset() {
		if !b.source.SupportsSeeking() {
			slog.Debug("backend requested a seek on a forward-only source",
				"position", position,
				"offset", b.source.Offset())
			return 0, toolbox.StatusOperationNotSupported
		}
		if err := b.source.SeekToOffset(position); err != nil {
			slog.Debug("byte source seek failed", "position", position, "error", err)
			return 0, toolbox.StatusOperationNotSupported
		}
	}

	n, err := b.source.Read(buf)
	if n > 0 {
		return n, toolbox.StatusOK
	}
	if len(buf) == 0 {
		return 0, toolbox.StatusOK
	}
	if b.source.AtEOF() {
		return 0, toolbox.StatusEndOfFile
	}
	if err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("byte source read failed", "url", b.source.URL(), "position", position, "error", err)
	}
	return 0, toolbox.StatusIOError
}

// Size satisfies toolbox.SizeFunc
func (b *BackendBridge) Size() int64 {
	return b.source.Length()
}
