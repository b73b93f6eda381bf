package toolbox

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/youpy/go-wav"
)

// fmt chunk audio format codes
const (
	waveFormatPCM        = 0x0001
	waveFormatIEEEFloat  = 0x0003
	waveFormatExtensible = 0xFFFE
)

// waveContainer serves linear PCM straight from the data chunk
type waveContainer struct {
	r      *callbackReader
	format StreamDescription
	pcm    pcmRegion
}

func openWave(r *callbackReader) (container, error) {
	outer, form, err := readFormHeader(r)
	if err != nil {
		return nil, err
	}
	if outer != "RIFF" || form != "WAVE" {
		return nil, StatusUnsupportedFileType
	}

	wf, err := wav.NewReader(r).Format()
	if err != nil {
		return nil, fmt.Errorf("parsing fmt chunk: %w", StatusInvalidFile)
	}
	if wf.NumChannels == 0 || wf.SampleRate == 0 || wf.BlockAlign == 0 || wf.BitsPerSample == 0 {
		slog.Debug("invalid WAVE format parameters",
			"channels", wf.NumChannels,
			"sample_rate", wf.SampleRate,
			"block_align", wf.BlockAlign,
			"bits_per_sample", wf.BitsPerSample)
		return nil, StatusInvalidFile
	}

	var flags FormatFlags
	switch wf.AudioFormat {
	case waveFormatPCM, waveFormatExtensible:
		if wf.BitsPerSample > 8 {
			flags |= FlagIsSignedInteger
		}
	case waveFormatIEEEFloat:
		flags |= FlagIsFloat
	default:
		slog.Debug("compressed WAVE data is not supported", "audio_format", wf.AudioFormat)
		return nil, StatusUnsupportedDataFormat
	}
	if uint32(wf.BitsPerSample) == uint32(wf.BlockAlign)/uint32(wf.NumChannels)*8 {
		flags |= FlagIsPacked
	} else {
		flags |= FlagIsAlignedHigh
	}

	c := &waveContainer{
		r: r,
		format: StreamDescription{
			FormatID:         FormatLinearPCM,
			FormatFlags:      flags,
			SampleRate:       float64(wf.SampleRate),
			ChannelsPerFrame: uint32(wf.NumChannels),
			BitsPerChannel:   uint32(wf.BitsPerSample),
			BytesPerPacket:   uint32(wf.BlockAlign),
			FramesPerPacket:  1,
			BytesPerFrame:    uint32(wf.BlockAlign),
		},
	}

	err = walkChunks(r, binary.LittleEndian, func(ch chunk) error {
		if ch.id != "data" {
			return nil
		}
		c.pcm = newPCMRegion(r, ch.offset, ch.size, int64(wf.BlockAlign))
		return errStopWalk
	})
	if err != nil {
		return nil, err
	}
	if c.pcm.bytesPerFrame == 0 {
		return nil, fmt.Errorf("no data chunk: %w", StatusInvalidFile)
	}

	return c, nil
}

func (c *waveContainer) fileType() FileType                     { return FileTypeWAVE }
func (c *waveContainer) dataFormat() StreamDescription          { return c.format }
func (c *waveContainer) sampleShape() (sampleKind, int)         { return kindRaw, 0 }
func (c *waveContainer) channelLayout() (*ChannelLayout, error) { return nil, StatusUnsupportedProperty }
func (c *waveContainer) lengthFrames() (int64, error)           { return c.pcm.frames, nil }
func (c *waveContainer) tell() (int64, error)                   { return c.pcm.pos, nil }
func (c *waveContainer) seek(frame int64) error                 { return c.pcm.seek(frame) }
func (c *waveContainer) close() error                           { return nil }

func (c *waveContainer) readFrames(chunk *pcmChunk, frames int) (int, error) {
	return c.pcm.read(chunk, frames)
}

// pcmRegion reads whole frames of raw PCM from a byte range of the file
type pcmRegion struct {
	r             *callbackReader
	offset        int64
	bytesPerFrame int64
	frames        int64
	pos           int64
}

func newPCMRegion(r *callbackReader, offset, size, bytesPerFrame int64) pcmRegion {
	// Streams written before their length was known often carry a bogus
	// size; trust the file size instead
	if total := r.Size(); total > 0 && (size == 0xFFFFFFFF || offset+size > total) {
		size = total - offset
	}
	return pcmRegion{
		r:             r,
		offset:        offset,
		bytesPerFrame: bytesPerFrame,
		frames:        size / bytesPerFrame,
	}
}

func (p *pcmRegion) read(chunk *pcmChunk, frames int) (int, error) {
	remaining := p.frames - p.pos
	if remaining <= 0 {
		return 0, nil
	}
	if int64(frames) > remaining {
		frames = int(remaining)
	}

	start := len(chunk.raw)
	want := frames * int(p.bytesPerFrame)
	chunk.raw = append(chunk.raw, make([]byte, want)...)
	n, err := p.r.ReadAt(chunk.raw[start:], p.offset+p.pos*p.bytesPerFrame)

	got := n / int(p.bytesPerFrame)
	chunk.raw = chunk.raw[:start+got*int(p.bytesPerFrame)]
	chunk.frames += got
	p.pos += int64(got)

	if got == 0 && err != nil {
		if s := statusFromError(err); s != StatusEndOfFile {
			return 0, s
		}
	}
	return got, nil
}

func (p *pcmRegion) seek(frame int64) error {
	if frame < 0 || frame > p.frames {
		return StatusInvalidSeek
	}
	p.pos = frame
	return nil
}
