package toolbox

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatID identifies the encoding of a stream
type FormatID uint32

// Known stream encodings
const (
	FormatLinearPCM     FormatID = 'l'<<24 | 'p'<<16 | 'c'<<8 | 'm'
	FormatAppleLossless FormatID = 'a'<<24 | 'l'<<16 | 'a'<<8 | 'c'
	FormatMPEGLayer3    FormatID = '.'<<24 | 'm'<<16 | 'p'<<8 | '3'
	FormatMPEG4AAC      FormatID = 'a'<<24 | 'a'<<16 | 'c'<<8 | ' '
	FormatFLAC          FormatID = 'f'<<24 | 'l'<<16 | 'a'<<8 | 'c'
	FormatVorbis        FormatID = 'v'<<24 | 'o'<<16 | 'r'<<8 | 'b'
)

// String renders the format ID as its four-character code
func (f FormatID) String() string {
	return string([]byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)})
}

// FormatFlags qualify a FormatID. Linear PCM flags describe the sample
// layout; codec formats reuse the field for codec specific values.
type FormatFlags uint32

// Linear PCM flags
const (
	FlagIsFloat          FormatFlags = 1 << 0
	FlagIsBigEndian      FormatFlags = 1 << 1
	FlagIsSignedInteger  FormatFlags = 1 << 2
	FlagIsPacked         FormatFlags = 1 << 3
	FlagIsAlignedHigh    FormatFlags = 1 << 4
	FlagIsNonInterleaved FormatFlags = 1 << 5
)

// Apple Lossless and FLAC carry the source bit depth as a flag value
const (
	LosslessFlag16BitSourceData FormatFlags = 1
	LosslessFlag20BitSourceData FormatFlags = 2
	LosslessFlag24BitSourceData FormatFlags = 3
	LosslessFlag32BitSourceData FormatFlags = 4
)

// NativeBigEndian reports whether the host stores multi-byte values big-endian
var NativeBigEndian = binary.NativeEndian.Uint16([]byte{0x00, 0x01}) == 0x0001

// FlagsNativeEndian is FlagIsBigEndian on big-endian hosts and zero otherwise
var FlagsNativeEndian = func() FormatFlags {
	if NativeBigEndian {
		return FlagIsBigEndian
	}
	return 0
}()

// FlagsNativeFloatPacked describes packed native-endian float samples
var FlagsNativeFloatPacked = FlagIsFloat | FlagsNativeEndian | FlagIsPacked

// StreamDescription describes the shape of an audio stream
type StreamDescription struct {
	FormatID         FormatID
	FormatFlags      FormatFlags
	SampleRate       float64
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
	BytesPerPacket   uint32
	FramesPerPacket  uint32
	BytesPerFrame    uint32
	Reserved         uint32
}

// IsLinearPCM reports whether the description is uncompressed PCM
func (sd StreamDescription) IsLinearPCM() bool {
	return sd.FormatID == FormatLinearPCM
}

// IsInterleaved reports whether all channels share one buffer
func (sd StreamDescription) IsInterleaved() bool {
	return sd.FormatFlags&FlagIsNonInterleaved == 0
}

// IsFloat reports whether linear PCM samples are floating point
func (sd StreamDescription) IsFloat() bool {
	return sd.FormatFlags&FlagIsFloat != 0
}

// IsBigEndian reports whether linear PCM samples are big-endian
func (sd StreamDescription) IsBigEndian() bool {
	return sd.FormatFlags&FlagIsBigEndian != 0
}

// BufferCount is the number of buffers a BufferList needs for this format
func (sd StreamDescription) BufferCount() int {
	if sd.IsInterleaved() {
		return 1
	}
	return int(sd.ChannelsPerFrame)
}

// ChannelsPerBuffer is the number of channels stored in each buffer
func (sd StreamDescription) ChannelsPerBuffer() uint32 {
	if sd.IsInterleaved() {
		return sd.ChannelsPerFrame
	}
	return 1
}

// String renders a compact description for logs and CLI output
func (sd StreamDescription) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "'%s' %g Hz, %d ch", sd.FormatID, sd.SampleRate, sd.ChannelsPerFrame)
	if sd.IsLinearPCM() {
		kind := "unsigned int"
		switch {
		case sd.IsFloat():
			kind = "float"
		case sd.FormatFlags&FlagIsSignedInteger != 0:
			kind = "signed int"
		}
		endian := "little-endian"
		if sd.IsBigEndian() {
			endian = "big-endian"
		}
		fmt.Fprintf(&b, ", %d-bit %s %s", sd.BitsPerChannel, endian, kind)
		if cpb := sd.ChannelsPerBuffer(); sd.FormatFlags&FlagIsAlignedHigh != 0 && cpb > 0 && sd.BitsPerChannel < sd.BytesPerFrame/cpb*8 {
			b.WriteString(", high-aligned")
		}
		if sd.IsInterleaved() {
			b.WriteString(", interleaved")
		} else {
			b.WriteString(", deinterleaved")
		}
	} else {
		fmt.Fprintf(&b, ", flags 0x%x, %d frames/packet", uint32(sd.FormatFlags), sd.FramesPerPacket)
	}
	return b.String()
}

// FileType identifies a container format
type FileType uint32

// Container formats
const (
	FileTypeUnknown   FileType = 0
	FileTypeWAVE      FileType = 'W'<<24 | 'A'<<16 | 'V'<<8 | 'E'
	FileTypeAIFF      FileType = 'A'<<24 | 'I'<<16 | 'F'<<8 | 'F'
	FileTypeAIFC      FileType = 'A'<<24 | 'I'<<16 | 'F'<<8 | 'C'
	FileTypeMP3       FileType = 'M'<<24 | 'P'<<16 | 'G'<<8 | '3'
	FileTypeFLAC      FileType = 'f'<<24 | 'l'<<16 | 'a'<<8 | 'c'
	FileTypeOggVorbis FileType = 'O'<<24 | 'g'<<16 | 'g'<<8 | 'V'
	FileTypeAACADTS   FileType = 'a'<<24 | 'd'<<16 | 't'<<8 | 's'
	FileTypeM4A       FileType = 'm'<<24 | '4'<<16 | 'a'<<8 | 'f'
	FileTypeMPEG4     FileType = 'm'<<24 | 'p'<<16 | '4'<<8 | 'f'
)

// String renders the file type as its four-character code
func (t FileType) String() string {
	if t == FileTypeUnknown {
		return "unknown"
	}
	return string([]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)})
}

// Buffer holds audio for one or more channels
type Buffer struct {
	NumberChannels uint32
	// DataByteSize is the number of valid bytes in Data after a read
	DataByteSize int
	Data         []byte
}

// BufferList is the destination of ExtFile.Read. Interleaved formats use a
// single buffer, deinterleaved formats one buffer per channel.
type BufferList struct {
	Buffers []Buffer
}

// NewBufferList allocates buffers able to hold frames frames of format
func NewBufferList(format StreamDescription, frames int) *BufferList {
	count := format.BufferCount()
	list := &BufferList{Buffers: make([]Buffer, count)}
	for i := range list.Buffers {
		list.Buffers[i] = Buffer{
			NumberChannels: format.ChannelsPerBuffer(),
			Data:           make([]byte, frames*int(format.BytesPerFrame)),
		}
	}
	return list
}

// FrameCapacity returns how many frames of format every buffer can hold
func (l *BufferList) FrameCapacity(format StreamDescription) int {
	if l == nil || len(l.Buffers) == 0 || format.BytesPerFrame == 0 {
		return 0
	}
	capacity := -1
	for _, b := range l.Buffers {
		frames := len(b.Data) / int(format.BytesPerFrame)
		if capacity < 0 || frames < capacity {
			capacity = frames
		}
	}
	return capacity
}

// ChannelLabel names the speaker role of one channel
type ChannelLabel uint32

// Channel labels
const (
	ChannelLabelUnknown ChannelLabel = iota
	ChannelLabelLeft
	ChannelLabelRight
	ChannelLabelCenter
	ChannelLabelLFEScreen
	ChannelLabelLeftSurround
	ChannelLabelRightSurround
	ChannelLabelLeftCenter
	ChannelLabelRightCenter
	ChannelLabelCenterSurround
	ChannelLabelLeftSurroundDirect
	ChannelLabelRightSurroundDirect
	ChannelLabelMono
)

var channelLabelNames = [...]string{
	"unknown", "L", "R", "C", "LFE", "Ls", "Rs", "Lc", "Rc", "Cs", "Lsd", "Rsd", "M",
}

func (l ChannelLabel) String() string {
	if int(l) < len(channelLabelNames) {
		return channelLabelNames[l]
	}
	return fmt.Sprintf("label(%d)", uint32(l))
}

// ChannelLayout assigns a speaker role to every channel, in stream order
type ChannelLayout struct {
	Labels []ChannelLabel
}

// NumberChannels returns the number of channels described by the layout
func (l *ChannelLayout) NumberChannels() int {
	if l == nil {
		return 0
	}
	return len(l.Labels)
}

func (l *ChannelLayout) String() string {
	if l == nil {
		return "none"
	}
	names := make([]string, len(l.Labels))
	for i, label := range l.Labels {
		names[i] = label.String()
	}
	return strings.Join(names, " ")
}

func newLayout(labels ...ChannelLabel) *ChannelLayout {
	return &ChannelLayout{Labels: labels}
}
