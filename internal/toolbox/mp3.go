package toolbox

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to interleaved 16-bit little-endian stereo
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
	mp3FramesPerPkt  = 1152
)

type mp3Container struct {
	dec    *mp3.Decoder
	format StreamDescription
	frames int64
	pos    int64
	buf    []byte
}

func openMP3(r *callbackReader) (container, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		slog.Debug("mp3 decoder rejected stream", "error", err)
		if s := statusFromError(err); s == StatusIOError || s == StatusOperationNotSupported {
			return nil, s
		}
		return nil, StatusInvalidFile
	}
	if dec.SampleRate() <= 0 {
		return nil, StatusInvalidFile
	}

	frames := int64(-1)
	if length := dec.Length(); length >= 0 {
		frames = length / mp3BytesPerFrame
	}

	return &mp3Container{
		dec: dec,
		format: StreamDescription{
			FormatID:         FormatMPEGLayer3,
			SampleRate:       float64(dec.SampleRate()),
			ChannelsPerFrame: mp3Channels,
			FramesPerPacket:  mp3FramesPerPkt,
		},
		frames: frames,
	}, nil
}

func (c *mp3Container) fileType() FileType                     { return FileTypeMP3 }
func (c *mp3Container) dataFormat() StreamDescription          { return c.format }
func (c *mp3Container) sampleShape() (sampleKind, int)         { return kindInt, 16 }
func (c *mp3Container) channelLayout() (*ChannelLayout, error) { return nil, StatusUnsupportedProperty }
func (c *mp3Container) tell() (int64, error)                   { return c.pos, nil }
func (c *mp3Container) close() error                           { return nil }

func (c *mp3Container) lengthFrames() (int64, error) {
	if c.frames < 0 {
		return 0, StatusOperationNotSupported
	}
	return c.frames, nil
}

func (c *mp3Container) readFrames(chunk *pcmChunk, frames int) (int, error) {
	want := frames * mp3BytesPerFrame
	if cap(c.buf) < want {
		c.buf = make([]byte, want)
	}
	buf := c.buf[:want]

	n, err := io.ReadFull(c.dec, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		if n == 0 {
			return 0, statusFromError(err)
		}
		slog.Warn("mp3 decode stopped early", "error", err, "bytes_decoded", n)
	}

	got := n / mp3BytesPerFrame
	for i := 0; i < got*mp3Channels; i++ {
		chunk.ints = append(chunk.ints, int32(int16(binary.LittleEndian.Uint16(buf[i*2:]))))
	}
	chunk.frames += got
	c.pos += int64(got)
	return got, nil
}

func (c *mp3Container) seek(frame int64) error {
	if frame < 0 || (c.frames >= 0 && frame > c.frames) {
		return StatusInvalidSeek
	}
	if _, err := c.dec.Seek(frame*mp3BytesPerFrame, io.SeekStart); err != nil {
		slog.Debug("mp3 seek failed", "frame", frame, "error", err)
		return StatusInvalidSeek
	}
	c.pos = frame
	return nil
}
