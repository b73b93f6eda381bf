package toolbox

import (
	"errors"
	"io"
	"log/slog"

	"github.com/jfreymuth/oggvorbis"
)

type vorbisContainer struct {
	dec      *oggvorbis.Reader
	format   StreamDescription
	channels int
	frames   int64
	buf      []float32
}

func openVorbis(r *callbackReader) (container, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		slog.Debug("ogg vorbis stream rejected", "error", err)
		if s := statusFromError(err); s == StatusIOError || s == StatusOperationNotSupported {
			return nil, s
		}
		return nil, StatusInvalidFile
	}
	if dec.Channels() <= 0 || dec.SampleRate() <= 0 {
		return nil, StatusInvalidFile
	}

	return &vorbisContainer{
		dec: dec,
		format: StreamDescription{
			FormatID:         FormatVorbis,
			SampleRate:       float64(dec.SampleRate()),
			ChannelsPerFrame: uint32(dec.Channels()),
		},
		channels: dec.Channels(),
		frames:   dec.Length(),
	}, nil
}

func (c *vorbisContainer) fileType() FileType             { return FileTypeOggVorbis }
func (c *vorbisContainer) dataFormat() StreamDescription  { return c.format }
func (c *vorbisContainer) sampleShape() (sampleKind, int) { return kindFloat, 32 }
func (c *vorbisContainer) tell() (int64, error)           { return c.dec.Position(), nil }
func (c *vorbisContainer) close() error                   { return nil }

func (c *vorbisContainer) channelLayout() (*ChannelLayout, error) {
	return layoutFromOrder(vorbisChannelOrder, c.channels)
}

func (c *vorbisContainer) lengthFrames() (int64, error) {
	// Length is zero when the source cannot seek to the last page
	if c.frames <= 0 {
		return 0, StatusOperationNotSupported
	}
	return c.frames, nil
}

func (c *vorbisContainer) readFrames(chunk *pcmChunk, frames int) (int, error) {
	want := frames * c.channels
	if cap(c.buf) < want {
		c.buf = make([]float32, want)
	}

	total := 0
	for total < want {
		n, err := c.dec.Read(c.buf[total:want])
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if total == 0 {
				return 0, statusFromError(err)
			}
			slog.Warn("vorbis decode stopped early", "error", err)
			break
		}
		if n == 0 {
			break
		}
	}

	got := total / c.channels
	chunk.floats = append(chunk.floats, c.buf[:got*c.channels]...)
	chunk.frames += got
	return got, nil
}

func (c *vorbisContainer) seek(frame int64) error {
	if frame < 0 || (c.frames > 0 && frame > c.frames) {
		return StatusInvalidSeek
	}
	if err := c.dec.SetPosition(frame); err != nil {
		slog.Debug("vorbis seek failed", "frame", frame, "error", err)
		return StatusInvalidSeek
	}
	return nil
}
