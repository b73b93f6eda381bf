package audio

import (
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"tonearm.click/internal/toolbox"
)

// wavFixture encodes frames frames where channel ch of frame i holds
// i*(ch+1), negated on odd channels
func wavFixture(t *testing.T, frames, channels, bits, rate int) []byte {
	t.Helper()

	limit := 1 << (bits - 1)
	samples := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := (i * (ch + 1)) % limit
			if ch%2 == 1 {
				v = -v
			}
			samples = append(samples, v)
		}
	}

	fs := afero.NewMemMapFs()
	f, err := fs.Create("fixture.wav")
	if err != nil {
		t.Fatalf("Failed to create fixture: %v", err)
	}
	enc := wav.NewEncoder(f, rate, bits, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to encode WAV fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close WAV encoder: %v", err)
	}
	f.Close()

	data, err := afero.ReadFile(fs, "fixture.wav")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return data
}

// adtsFixture builds an AAC ADTS stream of empty stereo packets
func adtsFixture(packets int) []byte {
	const frameLen = 64
	var out []byte
	for i := 0; i < packets; i++ {
		hdr := []byte{0xFF, 0xF1, 0x01<<6 | 4<<2, 2 << 6, byte(frameLen >> 3), byte(frameLen&0x07)<<5 | 0x1F, 0xFC}
		out = append(out, hdr...)
		out = append(out, make([]byte, frameLen-len(hdr))...)
	}
	return out
}

// openDecoder opens a ToolboxDecoder over an in-memory source
func openDecoder(t *testing.T, name string, data []byte) *ToolboxDecoder {
	t.Helper()
	dec := NewToolboxDecoder(NewMemorySource(name, data))
	if err := dec.Open(); err != nil {
		t.Fatalf("Open(%s) failed: %v", name, err)
	}
	t.Cleanup(func() { dec.Close() })
	return dec
}

// fakeNative records calls made to the native file handle
type fakeNative struct {
	fileType  toolbox.FileType
	layout    *toolbox.ChannelLayout
	layoutErr error
	closes    int
}

func (f *fakeNative) FileType() (toolbox.FileType, error) {
	return f.fileType, nil
}

func (f *fakeNative) ChannelLayout() (*toolbox.ChannelLayout, error) {
	return f.layout, f.layoutErr
}

func (f *fakeNative) Close() error {
	f.closes++
	return nil
}

// fakeExt is an extended file over total silent frames. When granule is
// set, Tell rounds the position down to a multiple of it.
type fakeExt struct {
	native       *fakeNative
	format       toolbox.StreamDescription
	client       toolbox.StreamDescription
	setClientErr error
	total        int64
	pos          int64
	granule      int64

	calls    int
	disposes int
}

func (f *fakeExt) FileDataFormat() (toolbox.StreamDescription, error) {
	return f.format, nil
}

func (f *fakeExt) SetClientDataFormat(format toolbox.StreamDescription) error {
	if f.setClientErr != nil {
		return f.setClientErr
	}
	f.client = format
	return nil
}

func (f *fakeExt) File() (nativeFile, error) {
	return f.native, nil
}

func (f *fakeExt) LengthFrames() (int64, error) {
	f.calls++
	return f.total, nil
}

func (f *fakeExt) Read(list *toolbox.BufferList, frames uint32) (uint32, error) {
	f.calls++
	n := int64(frames)
	if rest := f.total - f.pos; n > rest {
		n = rest
	}
	f.pos += n
	return uint32(n), nil
}

func (f *fakeExt) Seek(frame int64) error {
	f.calls++
	if frame < 0 || frame > f.total {
		return toolbox.StatusInvalidSeek
	}
	f.pos = frame
	return nil
}

func (f *fakeExt) Tell() (int64, error) {
	f.calls++
	if f.granule > 0 {
		return f.pos / f.granule * f.granule, nil
	}
	return f.pos, nil
}

func (f *fakeExt) Dispose() error {
	f.disposes++
	return nil
}

// fakeBackend hands out one fakeNative and one fakeExt
type fakeBackend struct {
	native  *fakeNative
	ext     *fakeExt
	openErr error
	wrapErr error
}

func newFakeBackend(fileType toolbox.FileType, format toolbox.StreamDescription, total int64) *fakeBackend {
	native := &fakeNative{fileType: fileType, layoutErr: toolbox.StatusUnsupportedProperty}
	return &fakeBackend{
		native: native,
		ext:    &fakeExt{native: native, format: format, total: total},
	}
}

func (b *fakeBackend) OpenWithCallbacks(read toolbox.ReadFunc, size toolbox.SizeFunc, hint toolbox.FileType) (nativeFile, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.native, nil
}

func (b *fakeBackend) WrapFile(file nativeFile) (extendedFile, error) {
	if b.wrapErr != nil {
		return nil, b.wrapErr
	}
	return b.ext, nil
}

// stereoPCM16 is 44.1 kHz interleaved little-endian 16-bit stereo
var stereoPCM16 = toolbox.StreamDescription{
	FormatID:         toolbox.FormatLinearPCM,
	FormatFlags:      toolbox.FlagIsSignedInteger | toolbox.FlagIsPacked,
	SampleRate:       44100,
	ChannelsPerFrame: 2,
	BitsPerChannel:   16,
	BytesPerPacket:   4,
	FramesPerPacket:  1,
	BytesPerFrame:    4,
}

// stereoAAC is a 44.1 kHz stereo AAC source format
var stereoAAC = toolbox.StreamDescription{
	FormatID:         toolbox.FormatMPEG4AAC,
	FormatFlags:      2,
	SampleRate:       44100,
	ChannelsPerFrame: 2,
	FramesPerPacket:  1024,
}
