package toolbox

import (
	"fmt"
	"log/slog"
	"sort"
)

const (
	adtsHeaderSize        = 7
	adtsFramesPerRawBlk   = 1024
	id3v2HeaderSize       = 10
	adtsMaxLeadingGarbage = 64 * 1024
)

var adtsSampleRates = [...]uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// adtsHeader is the fixed and variable part of one ADTS frame header
type adtsHeader struct {
	profile       uint8
	sampleRateIdx uint8
	channelConfig uint8
	frameLength   int
	rawBlocks     int
}

func parseADTSHeader(b []byte) (adtsHeader, bool) {
	if len(b) < adtsHeaderSize || b[0] != 0xFF || b[1]&0xF6 != 0xF0 {
		return adtsHeader{}, false
	}
	h := adtsHeader{
		profile:       b[2] >> 6,
		sampleRateIdx: (b[2] >> 2) & 0x0F,
		channelConfig: (b[2]&0x01)<<2 | b[3]>>6,
		frameLength:   int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5])>>5,
		rawBlocks:     int(b[6]&0x03) + 1,
	}
	if int(h.sampleRateIdx) >= len(adtsSampleRates) || h.frameLength < adtsHeaderSize {
		return adtsHeader{}, false
	}
	return h, true
}

// adtsPacket locates one ADTS frame and the first audio frame it carries
type adtsPacket struct {
	offset     int64
	size       int
	startFrame int64
	frames     int64
}

// adtsContainer indexes the ADTS frames of an AAC stream. No AAC codec is
// linked in, so reads fail with StatusUnsupportedDataFormat; length, seek
// and tell work from the packet table.
//
// tell reports the first frame of the packet holding the read position,
// not the position itself. Callers that need exact positions must track
// them; see audio.ToolboxDecoder.
type adtsContainer struct {
	format  StreamDescription
	config  uint8
	packets []adtsPacket
	frames  int64
	pos     int64
}

func openADTS(r *callbackReader) (container, error) {
	start, err := skipID3v2(r)
	if err != nil {
		return nil, err
	}

	// Resync within a bounded window when the stream starts mid-frame
	var hdr [adtsHeaderSize]byte
	var first adtsHeader
	found := false
	for offset := start; offset < start+adtsMaxLeadingGarbage; offset++ {
		if n, _ := r.ReadAt(hdr[:], offset); n < adtsHeaderSize {
			break
		}
		if h, ok := parseADTSHeader(hdr[:]); ok {
			first, start, found = h, offset, true
			break
		}
	}
	if !found {
		return nil, StatusUnsupportedFileType
	}

	c := &adtsContainer{config: first.channelConfig}
	for offset := start; ; {
		n, rerr := r.ReadAt(hdr[:], offset)
		if n < adtsHeaderSize {
			if s := statusFromError(rerr); rerr != nil && s != StatusEndOfFile {
				return nil, s
			}
			break
		}
		h, ok := parseADTSHeader(hdr[:])
		if !ok {
			slog.Debug("adts sync lost", "offset", offset, "packets", len(c.packets))
			break
		}
		frames := int64(h.rawBlocks * adtsFramesPerRawBlk)
		c.packets = append(c.packets, adtsPacket{
			offset:     offset,
			size:       h.frameLength,
			startFrame: c.frames,
			frames:     frames,
		})
		c.frames += frames
		offset += int64(h.frameLength)
	}
	if len(c.packets) == 0 {
		return nil, fmt.Errorf("no ADTS frames: %w", StatusInvalidFile)
	}

	channels := uint32(first.channelConfig)
	if channels == 7 {
		channels = 8
	}
	// The flags carry the MPEG-4 audio object type
	c.format = StreamDescription{
		FormatID:         FormatMPEG4AAC,
		FormatFlags:      FormatFlags(first.profile) + 1,
		SampleRate:       float64(adtsSampleRates[first.sampleRateIdx]),
		ChannelsPerFrame: channels,
		FramesPerPacket:  adtsFramesPerRawBlk,
	}

	slog.Debug("adts packet table built",
		"packets", len(c.packets),
		"frames", c.frames,
		"channel_config", first.channelConfig)
	return c, nil
}

// skipID3v2 returns the offset after a leading ID3v2 tag, or 0
func skipID3v2(r *callbackReader) (int64, error) {
	var hdr [id3v2HeaderSize]byte
	n, err := r.ReadAt(hdr[:], 0)
	if n < id3v2HeaderSize {
		if s := statusFromError(err); err != nil && s != StatusEndOfFile {
			return 0, s
		}
		return 0, nil
	}
	if string(hdr[:3]) != "ID3" {
		return 0, nil
	}
	size := int64(hdr[6]&0x7F)<<21 | int64(hdr[7]&0x7F)<<14 | int64(hdr[8]&0x7F)<<7 | int64(hdr[9]&0x7F)
	if hdr[5]&0x10 != 0 {
		// footer present
		size += id3v2HeaderSize
	}
	return id3v2HeaderSize + size, nil
}

func (c *adtsContainer) fileType() FileType             { return FileTypeAACADTS }
func (c *adtsContainer) dataFormat() StreamDescription  { return c.format }
func (c *adtsContainer) sampleShape() (sampleKind, int) { return kindFloat, 32 }
func (c *adtsContainer) lengthFrames() (int64, error)   { return c.frames, nil }
func (c *adtsContainer) close() error                   { return nil }

func (c *adtsContainer) channelLayout() (*ChannelLayout, error) {
	return layoutFromOrder(aacChannelOrder, int(c.config))
}

func (c *adtsContainer) readFrames(chunk *pcmChunk, frames int) (int, error) {
	if c.pos >= c.frames {
		return 0, nil
	}
	return 0, fmt.Errorf("no AAC codec available: %w", StatusUnsupportedDataFormat)
}

func (c *adtsContainer) seek(frame int64) error {
	if frame < 0 || frame > c.frames {
		return StatusInvalidSeek
	}
	c.pos = frame
	return nil
}

func (c *adtsContainer) tell() (int64, error) {
	if c.pos >= c.frames {
		return c.frames, nil
	}
	return c.packets[c.packetIndex(c.pos)].startFrame, nil
}

// packetIndex returns the packet that holds frame
func (c *adtsContainer) packetIndex(frame int64) int {
	return sort.Search(len(c.packets), func(i int) bool {
		return c.packets[i].startFrame > frame
	}) - 1
}
