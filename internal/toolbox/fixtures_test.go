package toolbox

import (
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// rampSamples returns interleaved samples where channel ch of frame i holds
// i*(ch+1), wrapped to the bit depth
func rampSamples(frames, channels, bits int) []int {
	limit := 1 << (bits - 1)
	data := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := (i * (ch + 1)) % limit
			if ch%2 == 1 {
				v = -v
			}
			data = append(data, v)
		}
	}
	return data
}

func encodeWAV(t *testing.T, frames, channels, bits, rate int) []byte {
	t.Helper()

	fs := afero.NewMemMapFs()
	f, err := fs.Create("fixture.wav")
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	enc := wav.NewEncoder(f, rate, bits, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           rampSamples(frames, channels, bits),
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding WAV fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing WAV encoder: %v", err)
	}
	f.Close()

	data, err := afero.ReadFile(fs, "fixture.wav")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return data
}

func encodeAIFF(t *testing.T, frames, channels, bits, rate int) []byte {
	t.Helper()

	fs := afero.NewMemMapFs()
	f, err := fs.Create("fixture.aiff")
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	enc := aiff.NewEncoder(f, rate, bits, channels)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           rampSamples(frames, channels, bits),
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding AIFF fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing AIFF encoder: %v", err)
	}
	f.Close()

	data, err := afero.ReadFile(fs, "fixture.aiff")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return data
}

// adtsStream builds packets ADTS frames of frameLen bytes each with an
// empty payload. The stream parses but carries no decodable audio.
func adtsStream(packets, frameLen int, channelConfig byte) []byte {
	var out []byte
	for i := 0; i < packets; i++ {
		hdr := []byte{
			0xFF, 0xF1,
			// AAC LC, 44.1 kHz, private bit clear, channel config high bit
			0x01<<6 | 4<<2 | (channelConfig>>2)&0x01,
			(channelConfig&0x03)<<6 | byte(frameLen>>11)&0x03,
			byte(frameLen >> 3),
			byte(frameLen&0x07)<<5 | 0x1F,
			0xFC,
		}
		out = append(out, hdr...)
		out = append(out, make([]byte, frameLen-len(hdr))...)
	}
	return out
}

// memCallbacks serves data through the toolbox callback pair and counts
// read calls
type memCallbacks struct {
	data  []byte
	reads int
}

func (m *memCallbacks) read(position int64, buf []byte) (int, Status) {
	m.reads++
	if position >= int64(len(m.data)) {
		return 0, StatusEndOfFile
	}
	return copy(buf, m.data[position:]), StatusOK
}

func (m *memCallbacks) size() int64 {
	return int64(len(m.data))
}

func openBytes(t *testing.T, data []byte, hint FileType) *File {
	t.Helper()
	cb := &memCallbacks{data: data}
	f, err := OpenWithCallbacks(cb.read, cb.size, hint)
	if err != nil {
		t.Fatalf("OpenWithCallbacks failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}
