package audio

import "tonearm.click/internal/toolbox"

// Decoder is the uniform contract every decoder variant implements. A
// Decoder is not safe for concurrent use.
type Decoder interface {
	// Open acquires the backend and fixes the client format. On failure
	// the decoder stays closed and the error is a *DecoderError unless it
	// came from opening the source.
	Open() error
	// Close releases the backend. It is idempotent and always leaves the
	// decoder closed.
	Close() error
	IsOpen() bool

	// Format is the client format ReadAudio delivers
	Format() toolbox.StreamDescription
	// SourceFormat is the encoding stored in the container
	SourceFormat() toolbox.StreamDescription
	// ChannelLayout is nil when the container defines none
	ChannelLayout() *toolbox.ChannelLayout

	Source() ByteSource
	SupportsSeeking() bool

	// TotalFrames returns -1 when closed or unknown
	TotalFrames() int64
	// CurrentFrame returns -1 when closed or when the backend cannot say
	CurrentFrame() int64
	// SeekToFrame returns the new position, or -1 when the decoder is
	// closed, frame is outside [0, TotalFrames), or the backend failed
	SeekToFrame(frame int64) int64
	// ReadAudio fills list with up to frames frames in the client format
	// and returns how many were delivered. Zero means end of stream, an
	// invalid call, or a backend failure.
	ReadAudio(list *toolbox.BufferList, frames uint32) uint32
}

// positionMode selects where a decoder's frame position comes from
type positionMode int

const (
	// nativePosition asks the backend
	nativePosition positionMode = iota
	// manualPosition counts frames read and sought in the decoder, for
	// containers whose backend reports positions only to packet accuracy
	manualPosition
)

func (m positionMode) String() string {
	if m == manualPosition {
		return "manual"
	}
	return "native"
}

// positionModeFor returns the mode a container type needs
func positionModeFor(t toolbox.FileType) positionMode {
	switch t {
	case toolbox.FileTypeM4A, toolbox.FileTypeMPEG4, toolbox.FileTypeAACADTS:
		return manualPosition
	default:
		return nativePosition
	}
}
