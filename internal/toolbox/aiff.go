package toolbox

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/go-audio/aiff"
)

// aiffContainer serves big-endian (or AIFC sowt little-endian) PCM from the
// SSND chunk
type aiffContainer struct {
	r        *callbackReader
	fileKind FileType
	format   StreamDescription
	pcm      pcmRegion
}

func openAIFF(r *callbackReader) (container, error) {
	outer, form, err := readFormHeader(r)
	if err != nil {
		return nil, err
	}
	if outer != "FORM" || (form != "AIFF" && form != "AIFC") {
		return nil, StatusUnsupportedFileType
	}

	dec := aiff.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("parsing COMM chunk: %w", StatusInvalidFile)
	}
	channels, rate, bits := uint32(dec.NumChans), dec.SampleRate, uint32(dec.BitDepth)
	if channels == 0 || rate <= 0 || bits == 0 || bits > 32 {
		slog.Debug("invalid AIFF format parameters",
			"channels", channels,
			"sample_rate", rate,
			"bit_depth", bits)
		return nil, StatusInvalidFile
	}

	c := &aiffContainer{r: r, fileKind: FileTypeAIFF}
	if form == "AIFC" {
		c.fileKind = FileTypeAIFC
	}

	flags := FlagIsBigEndian | FlagIsSignedInteger
	compression := "NONE"
	var ssnd chunk
	err = walkChunks(r, binary.BigEndian, func(ch chunk) error {
		switch ch.id {
		case "COMM":
			// The compression type follows the 18 byte AIFF COMM body
			if form == "AIFC" && ch.size >= 22 {
				var id [4]byte
				if _, err := r.ReadAt(id[:], ch.offset+18); err != nil {
					return StatusInvalidFile
				}
				compression = string(id[:])
			}
		case "SSND":
			// offset and blockSize precede the sample data
			var hdr [8]byte
			if _, err := r.ReadAt(hdr[:], ch.offset); err != nil {
				return StatusInvalidFile
			}
			skip := int64(binary.BigEndian.Uint32(hdr[:4]))
			ssnd = chunk{id: ch.id, offset: ch.offset + 8 + skip, size: ch.size - 8 - skip}
			return errStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ssnd.id == "" || ssnd.size < 0 {
		return nil, fmt.Errorf("no SSND chunk: %w", StatusInvalidFile)
	}

	switch compression {
	case "NONE", "twos":
	case "sowt":
		flags &^= FlagIsBigEndian
	case "fl32", "FL32":
		flags = FlagIsBigEndian | FlagIsFloat
		bits = 32
	default:
		slog.Debug("compressed AIFF-C data is not supported", "compression", compression)
		return nil, StatusUnsupportedDataFormat
	}

	bytesPerSample := (bits + 7) / 8
	if bits == bytesPerSample*8 {
		flags |= FlagIsPacked
	} else {
		flags |= FlagIsAlignedHigh
	}
	bytesPerFrame := bytesPerSample * channels

	c.format = StreamDescription{
		FormatID:         FormatLinearPCM,
		FormatFlags:      flags,
		SampleRate:       float64(rate),
		ChannelsPerFrame: channels,
		BitsPerChannel:   bits,
		BytesPerPacket:   bytesPerFrame,
		FramesPerPacket:  1,
		BytesPerFrame:    bytesPerFrame,
	}
	c.pcm = newPCMRegion(r, ssnd.offset, ssnd.size, int64(bytesPerFrame))
	return c, nil
}

func (c *aiffContainer) fileType() FileType                     { return c.fileKind }
func (c *aiffContainer) dataFormat() StreamDescription          { return c.format }
func (c *aiffContainer) sampleShape() (sampleKind, int)         { return kindRaw, 0 }
func (c *aiffContainer) channelLayout() (*ChannelLayout, error) { return nil, StatusUnsupportedProperty }
func (c *aiffContainer) lengthFrames() (int64, error)           { return c.pcm.frames, nil }
func (c *aiffContainer) tell() (int64, error)                   { return c.pcm.pos, nil }
func (c *aiffContainer) seek(frame int64) error                 { return c.pcm.seek(frame) }
func (c *aiffContainer) close() error                           { return nil }

func (c *aiffContainer) readFrames(chunk *pcmChunk, frames int) (int, error) {
	return c.pcm.read(chunk, frames)
}
