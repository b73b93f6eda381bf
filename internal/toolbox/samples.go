package toolbox

import (
	"encoding/binary"
	"math"
)

// Samples decodes the first frames frames of format held in list into one
// float64 slice per channel, scaled to [-1, 1). It accepts any linear PCM
// layout ExtFile.Read produces.
func Samples(format StreamDescription, list *BufferList, frames int) ([][]float64, error) {
	channels := int(format.ChannelsPerFrame)
	if !format.IsLinearPCM() || channels == 0 || format.BytesPerFrame == 0 || format.BitsPerChannel == 0 {
		return nil, StatusUnsupportedDataFormat
	}
	if list == nil || len(list.Buffers) != format.BufferCount() || list.FrameCapacity(format) < frames {
		return nil, StatusUnspecified
	}

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	if !format.IsInterleaved() {
		if !format.IsFloat() || format.BytesPerFrame != 4 {
			return nil, StatusUnsupportedDataFormat
		}
		for ch := 0; ch < channels; ch++ {
			data := list.Buffers[ch].Data
			for i := 0; i < frames; i++ {
				out[ch][i] = float64(math.Float32frombits(binary.NativeEndian.Uint32(data[i*4:])))
			}
		}
		return out, nil
	}

	chunk := pcmChunk{
		channels: channels,
		frames:   frames,
		raw:      list.Buffers[0].Data[:frames*int(format.BytesPerFrame)],
	}
	decodeRaw(&chunk, format)

	scale := 1.0
	if chunk.kind == kindInt {
		scale = 1 / float64(int64(1)<<(chunk.bits-1))
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			if chunk.kind == kindInt {
				out[ch][i] = float64(chunk.ints[i*channels+ch]) * scale
			} else {
				out[ch][i] = float64(chunk.floats[i*channels+ch])
			}
		}
	}
	return out, nil
}
