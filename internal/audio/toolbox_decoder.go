package audio

import (
	"log/slog"
	"path"

	"tonearm.click/internal/toolbox"
)

// nativeFile is the part of toolbox.File the decoder uses
type nativeFile interface {
	FileType() (toolbox.FileType, error)
	ChannelLayout() (*toolbox.ChannelLayout, error)
	Close() error
}

// extendedFile is the part of toolbox.ExtFile the decoder uses
type extendedFile interface {
	FileDataFormat() (toolbox.StreamDescription, error)
	SetClientDataFormat(format toolbox.StreamDescription) error
	File() (nativeFile, error)
	LengthFrames() (int64, error)
	Read(list *toolbox.BufferList, frames uint32) (uint32, error)
	Seek(frame int64) error
	Tell() (int64, error)
	Dispose() error
}

// toolboxBackend opens native and extended handles
type toolboxBackend interface {
	OpenWithCallbacks(read toolbox.ReadFunc, size toolbox.SizeFunc, hint toolbox.FileType) (nativeFile, error)
	WrapFile(file nativeFile) (extendedFile, error)
}

// systemToolbox is the toolboxBackend backed by the toolbox package
type systemToolbox struct{}

func (systemToolbox) OpenWithCallbacks(read toolbox.ReadFunc, size toolbox.SizeFunc, hint toolbox.FileType) (nativeFile, error) {
	f, err := toolbox.OpenWithCallbacks(read, size, hint)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (systemToolbox) WrapFile(file nativeFile) (extendedFile, error) {
	f, ok := file.(*toolbox.File)
	if !ok {
		return nil, toolbox.StatusInvalidFile
	}
	ext, err := toolbox.WrapFile(f)
	if err != nil {
		return nil, err
	}
	return toolboxExtFile{ext}, nil
}

// toolboxExtFile narrows ExtFile.File to the nativeFile interface
type toolboxExtFile struct {
	*toolbox.ExtFile
}

func (e toolboxExtFile) File() (nativeFile, error) {
	f, err := e.ExtFile.File()
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ToolboxDecoder decodes every container the toolbox package can open
type ToolboxDecoder struct {
	source  ByteSource
	backend toolboxBackend

	native nativeFile
	ext    extendedFile

	sourceFormat toolbox.StreamDescription
	format       toolbox.StreamDescription
	layout       *toolbox.ChannelLayout
	fileType     toolbox.FileType

	mode         positionMode
	currentFrame int64
	open         bool
}

// NewToolboxDecoder creates a closed decoder over source
func NewToolboxDecoder(source ByteSource) *ToolboxDecoder {
	return newToolboxDecoder(source, systemToolbox{})
}

func newToolboxDecoder(source ByteSource, backend toolboxBackend) *ToolboxDecoder {
	return &ToolboxDecoder{source: source, backend: backend}
}

// Open opens the source if needed, then the container, and negotiates the
// client format. Anything acquired before a failure is released again.
func (d *ToolboxDecoder) Open() error {
	if d.open {
		slog.Warn("Open() called on a decoder that is already open", "url", d.source.URL())
		return nil
	}

	if !d.source.IsOpen() {
		if err := d.source.Open(); err != nil {
			return err
		}
	}

	url := d.source.URL()
	bridge := NewBackendBridge(d.source)
	hint := toolbox.FileTypeForExtension(path.Ext(DisplayName(url)))

	native, err := d.backend.OpenWithCallbacks(bridge.ReadAt, bridge.Size, hint)
	if err != nil {
		slog.Error("opening container failed", "url", url, "error", err)
		return openError(url, err)
	}
	opened := false
	defer func() {
		if opened {
			return
		}
		if err := native.Close(); err != nil {
			slog.Warn("closing container failed", "url", url, "error", err)
		}
	}()

	ext, err := d.backend.WrapFile(native)
	if err != nil {
		slog.Error("wrapping container failed", "url", url, "error", err)
		return newInputOutputError(url, err)
	}
	defer func() {
		if opened {
			return
		}
		if err := ext.Dispose(); err != nil {
			slog.Warn("disposing extended file failed", "url", url, "error", err)
		}
	}()

	sourceFormat, err := ext.FileDataFormat()
	if err != nil {
		slog.Error("reading file data format failed", "url", url, "error", err)
		return newInputOutputError(url, err)
	}

	format := NegotiateClientFormat(sourceFormat)
	if err := ext.SetClientDataFormat(format); err != nil {
		slog.Error("setting client data format failed",
			"url", url,
			"source_format", sourceFormat.String(),
			"client_format", format.String(),
			"error", err)
		if toolbox.StatusOf(err) == toolbox.StatusUnsupportedDataFormat {
			return newFormatNotSupportedError(url, err)
		}
		return newInputOutputError(url, err)
	}

	layout, err := native.ChannelLayout()
	if err != nil {
		if toolbox.StatusOf(err) != toolbox.StatusUnsupportedProperty {
			slog.Error("reading channel layout failed", "url", url, "error", err)
			return newInputOutputError(url, err)
		}
		slog.Debug("container has no channel layout", "url", url)
		layout = nil
	}

	file, err := ext.File()
	if err != nil {
		slog.Error("reading audio file from extended file failed", "url", url, "error", err)
		return newInputOutputError(url, err)
	}
	fileType, err := file.FileType()
	if err != nil {
		slog.Error("reading file type failed", "url", url, "error", err)
		return newInputOutputError(url, err)
	}

	opened = true
	d.native = native
	d.ext = ext
	d.sourceFormat = sourceFormat
	d.format = format
	d.layout = layout
	d.fileType = fileType
	d.mode = positionModeFor(fileType)
	d.currentFrame = 0
	d.open = true

	slog.Info("decoder opened",
		"url", url,
		"file_type", fileType.String(),
		"source_format", sourceFormat.String(),
		"client_format", format.String(),
		"position_mode", d.mode.String())
	return nil
}

// Close disposes the extended file, then closes the container. Release
// failures are logged, never returned.
func (d *ToolboxDecoder) Close() error {
	if !d.open {
		slog.Warn("Close() called on a decoder that is not open", "url", d.source.URL())
		return nil
	}

	if err := d.ext.Dispose(); err != nil {
		slog.Warn("disposing extended file failed", "url", d.source.URL(), "error", err)
	}
	if err := d.native.Close(); err != nil {
		slog.Warn("closing container failed", "url", d.source.URL(), "error", err)
	}

	d.ext = nil
	d.native = nil
	d.layout = nil
	d.open = false
	slog.Debug("decoder closed", "url", d.source.URL())
	return nil
}

func (d *ToolboxDecoder) IsOpen() bool { return d.open }

func (d *ToolboxDecoder) Format() toolbox.StreamDescription { return d.format }

func (d *ToolboxDecoder) SourceFormat() toolbox.StreamDescription { return d.sourceFormat }

func (d *ToolboxDecoder) ChannelLayout() *toolbox.ChannelLayout { return d.layout }

func (d *ToolboxDecoder) Source() ByteSource { return d.source }

func (d *ToolboxDecoder) SupportsSeeking() bool { return d.source.SupportsSeeking() }

// FileType returns the container type found by Open
func (d *ToolboxDecoder) FileType() toolbox.FileType { return d.fileType }

// UsesManualPosition reports whether positions are counted by the decoder
// rather than queried from the backend
func (d *ToolboxDecoder) UsesManualPosition() bool { return d.mode == manualPosition }

func (d *ToolboxDecoder) TotalFrames() int64 {
	if !d.open {
		return -1
	}
	total, err := d.ext.LengthFrames()
	if err != nil {
		slog.Warn("querying total frames failed", "url", d.source.URL(), "error", err)
		return -1
	}
	return total
}

func (d *ToolboxDecoder) CurrentFrame() int64 {
	if !d.open {
		return -1
	}
	if d.mode == manualPosition {
		return d.currentFrame
	}
	frame, err := d.ext.Tell()
	if err != nil {
		slog.Debug("querying current frame failed", "url", d.source.URL(), "error", err)
		return -1
	}
	return frame
}

func (d *ToolboxDecoder) SeekToFrame(frame int64) int64 {
	if !d.open || frame < 0 || frame >= d.TotalFrames() {
		return -1
	}

	if err := d.ext.Seek(frame); err != nil {
		slog.Warn("seek failed", "url", d.source.URL(), "frame", frame, "error", err)
		return -1
	}
	if d.mode == manualPosition {
		d.currentFrame = frame
	}
	return d.CurrentFrame()
}

func (d *ToolboxDecoder) ReadAudio(list *toolbox.BufferList, frames uint32) uint32 {
	if !d.open || list == nil || frames == 0 {
		return 0
	}

	n, err := d.ext.Read(list, frames)
	if err != nil {
		slog.Warn("reading audio failed", "url", d.source.URL(), "frames_requested", frames, "error", err)
		return 0
	}
	if d.mode == manualPosition {
		d.currentFrame += int64(n)
	}
	return n
}
