package toolbox

import (
	"fmt"
	"log/slog"
)

// ExtFile wraps a File and delivers its audio in a client format chosen by
// the caller. It keeps its own reference to the File; disposing the ExtFile
// does not close it.
type ExtFile struct {
	file     *File
	client   StreamDescription
	shape    clientShape
	chunk    pcmChunk
	disposed bool
}

// WrapFile creates an extended handle over an open File. The client format
// starts out equal to the file's data format.
func WrapFile(f *File) (*ExtFile, error) {
	if !f.isOpen() {
		return nil, StatusNotOpen
	}
	format := f.c.dataFormat()
	e := &ExtFile{file: f, client: format}
	if format.IsLinearPCM() {
		e.shape = shapePassThrough
	}
	return e, nil
}

// File returns the wrapped container handle
func (e *ExtFile) File() (*File, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	return e.file, nil
}

// FileDataFormat returns the encoding stored in the container
func (e *ExtFile) FileDataFormat() (StreamDescription, error) {
	if err := e.check(); err != nil {
		return StreamDescription{}, err
	}
	return e.file.c.dataFormat(), nil
}

// ClientDataFormat returns the format Read delivers
func (e *ExtFile) ClientDataFormat() (StreamDescription, error) {
	if err := e.check(); err != nil {
		return StreamDescription{}, err
	}
	return e.client, nil
}

// SetClientDataFormat selects the format Read delivers. Only linear PCM
// pass-through, high-aligned interleaved int32 and planar float32 with the
// file's channel count and sample rate are accepted.
func (e *ExtFile) SetClientDataFormat(client StreamDescription) error {
	if err := e.check(); err != nil {
		return err
	}
	file := e.file.c.dataFormat()
	shape := classifyClient(file, client)
	if shape == shapeInvalid {
		slog.Debug("client format rejected",
			"file_format", file.String(),
			"client_format", client.String())
		return StatusUnsupportedDataFormat
	}
	e.client = client
	e.shape = shape
	return nil
}

// LengthFrames returns the total number of frames in the file
func (e *ExtFile) LengthFrames() (int64, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	return e.file.c.lengthFrames()
}

// Read decodes up to frames frames into list, converted to the client
// format. It returns the number of frames delivered; zero with a nil error
// is the end of the stream.
func (e *ExtFile) Read(list *BufferList, frames uint32) (uint32, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	if e.shape == shapeInvalid {
		return 0, StatusUnsupportedDataFormat
	}
	if list == nil || len(list.Buffers) != e.client.BufferCount() {
		return 0, fmt.Errorf("buffer list does not match client format: %w", StatusUnspecified)
	}
	want := min(int(frames), list.FrameCapacity(e.client))
	if want == 0 {
		for i := range list.Buffers {
			list.Buffers[i].DataByteSize = 0
		}
		return 0, nil
	}

	c := e.file.c
	kind, bits := c.sampleShape()
	format := c.dataFormat()
	e.chunk.reset(kind, int(format.ChannelsPerFrame), bits)

	for e.chunk.frames < want {
		n, err := c.readFrames(&e.chunk, want-e.chunk.frames)
		if err != nil {
			if e.chunk.frames == 0 {
				return 0, err
			}
			slog.Debug("short read", "frames", e.chunk.frames, "error", err)
			break
		}
		if n == 0 {
			break
		}
	}

	switch e.shape {
	case shapePassThrough:
		writePassThrough(list, &e.chunk)
	case shapeAlignedInt:
		if e.chunk.kind == kindRaw {
			decodeRaw(&e.chunk, format)
		}
		writeAlignedInt(list, &e.chunk, e.client)
	case shapePlanarFloat:
		if e.chunk.kind == kindRaw {
			decodeRaw(&e.chunk, format)
		}
		writePlanarFloat(list, &e.chunk)
	}
	return uint32(e.chunk.frames), nil
}

// Seek moves the read position to frame
func (e *ExtFile) Seek(frame int64) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.file.c.seek(frame)
}

// Tell returns the read position as the container reports it
func (e *ExtFile) Tell() (int64, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	return e.file.c.tell()
}

// Dispose releases the extended handle. Disposing twice returns
// StatusNotOpen.
func (e *ExtFile) Dispose() error {
	if e == nil || e.disposed {
		return StatusNotOpen
	}
	e.disposed = true
	e.file = nil
	e.chunk = pcmChunk{}
	return nil
}

func (e *ExtFile) check() error {
	if e == nil || e.disposed || !e.file.isOpen() {
		return StatusNotOpen
	}
	return nil
}
