package toolbox

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mewkiz/flac"
)

type flacContainer struct {
	stream   *flac.Stream
	format   StreamDescription
	channels int
	bits     int
	frames   int64
	pos      int64
	// skip is how many frames of the next decoded block precede pos after
	// a seek landed on the start of that block
	skip    int64
	pending intQueue
}

func openFLAC(r *callbackReader) (container, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		slog.Debug("flac stream rejected", "error", err)
		if s := statusFromError(err); s == StatusIOError || s == StatusOperationNotSupported {
			return nil, s
		}
		return nil, StatusInvalidFile
	}

	info := stream.Info
	if info == nil || info.NChannels == 0 || info.SampleRate == 0 {
		stream.Close()
		return nil, StatusInvalidFile
	}

	var flags FormatFlags
	switch info.BitsPerSample {
	case 16:
		flags = LosslessFlag16BitSourceData
	case 20:
		flags = LosslessFlag20BitSourceData
	case 24:
		flags = LosslessFlag24BitSourceData
	case 32:
		flags = LosslessFlag32BitSourceData
	}

	return &flacContainer{
		stream: stream,
		format: StreamDescription{
			FormatID:         FormatFLAC,
			FormatFlags:      flags,
			SampleRate:       float64(info.SampleRate),
			ChannelsPerFrame: uint32(info.NChannels),
			FramesPerPacket:  uint32(info.BlockSizeMax),
		},
		channels: int(info.NChannels),
		bits:     int(info.BitsPerSample),
		frames:   int64(info.NSamples),
	}, nil
}

func (c *flacContainer) fileType() FileType             { return FileTypeFLAC }
func (c *flacContainer) dataFormat() StreamDescription  { return c.format }
func (c *flacContainer) sampleShape() (sampleKind, int) { return kindInt, c.bits }
func (c *flacContainer) tell() (int64, error)           { return c.pos, nil }

// lengthFrames fails when STREAMINFO carries no sample count
func (c *flacContainer) lengthFrames() (int64, error) {
	if c.frames == 0 {
		return 0, StatusOperationNotSupported
	}
	return c.frames, nil
}

func (c *flacContainer) channelLayout() (*ChannelLayout, error) {
	return layoutFromOrder(waveChannelOrder, c.channels)
}

func (c *flacContainer) readFrames(chunk *pcmChunk, frames int) (int, error) {
	if c.frames > 0 && c.pos >= c.frames {
		return 0, nil
	}
	for c.pending.frames(c.channels) < frames {
		done, err := c.decodeBlock()
		if err != nil {
			if c.pending.frames(c.channels) == 0 {
				return 0, err
			}
			slog.Warn("flac decode stopped early", "error", err)
			break
		}
		if done {
			break
		}
	}

	got := min(frames, c.pending.frames(c.channels))
	chunk.ints = c.pending.pop(chunk.ints, got, c.channels)
	chunk.frames += got
	c.pos += int64(got)
	return got, nil
}

// decodeBlock appends the next FLAC frame to the pending queue. It reports
// true at the end of the stream.
func (c *flacContainer) decodeBlock() (bool, error) {
	fr, err := c.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, statusFromError(err)
	}
	if len(fr.Subframes) != c.channels {
		return false, StatusInvalidFile
	}

	n := len(fr.Subframes[0].Samples)
	interleaved := make([]int32, 0, n*c.channels)
	for i := 0; i < n; i++ {
		for _, sub := range fr.Subframes {
			interleaved = append(interleaved, sub.Samples[i])
		}
	}

	if c.skip > 0 {
		drop := min(c.skip, int64(n))
		interleaved = interleaved[drop*int64(c.channels):]
		c.skip -= drop
	}
	c.pending.push(interleaved)
	return false, nil
}

func (c *flacContainer) seek(frame int64) error {
	// NSamples is zero when the encoder did not know the length
	if frame < 0 || (c.frames > 0 && frame > c.frames) {
		return StatusInvalidSeek
	}
	c.pending.clear()
	c.skip = 0
	if c.frames > 0 && frame == c.frames {
		c.pos = frame
		return nil
	}

	start, err := c.stream.Seek(uint64(frame))
	if err != nil {
		slog.Debug("flac seek failed", "frame", frame, "error", err)
		return StatusInvalidSeek
	}
	c.skip = frame - int64(start)
	c.pos = frame
	return nil
}

func (c *flacContainer) close() error {
	return c.stream.Close()
}
