package toolbox

import (
	"encoding/binary"
	"math"
)

// clientShape is one of the output layouts ExtFile can produce
type clientShape int

const (
	shapeInvalid clientShape = iota
	// shapePassThrough copies linear PCM bytes unchanged
	shapePassThrough
	// shapeAlignedInt is interleaved native-endian int32 with the
	// significant bits in the high end
	shapeAlignedInt
	// shapePlanarFloat is one native-endian float32 buffer per channel
	shapePlanarFloat
)

// classifyClient decides which shape client asks for, given the file's
// data format. Channel count and sample rate must match the file.
func classifyClient(file, client StreamDescription) clientShape {
	if !client.IsLinearPCM() ||
		client.ChannelsPerFrame != file.ChannelsPerFrame ||
		client.SampleRate != file.SampleRate ||
		client.ChannelsPerFrame == 0 {
		return shapeInvalid
	}
	if file.IsLinearPCM() && client == file && file.IsInterleaved() {
		return shapePassThrough
	}
	if client.FormatFlags&FlagIsBigEndian != FlagsNativeEndian || client.FramesPerPacket != 1 {
		return shapeInvalid
	}

	switch {
	case client.IsFloat():
		if client.BitsPerChannel == 32 && !client.IsInterleaved() &&
			client.BytesPerFrame == 4 && client.BytesPerPacket == 4 {
			return shapePlanarFloat
		}
	case client.FormatFlags&FlagIsSignedInteger != 0:
		switch client.BitsPerChannel {
		case 16, 20, 24, 32:
		default:
			return shapeInvalid
		}
		frameSize := 4 * client.ChannelsPerFrame
		if client.IsInterleaved() && client.BytesPerFrame == frameSize && client.BytesPerPacket == frameSize &&
			(client.BitsPerChannel == 32 || client.FormatFlags&FlagIsAlignedHigh != 0) {
			return shapeAlignedInt
		}
	}
	return shapeInvalid
}

// decodeRaw turns raw linear PCM in chunk into integer or float samples so
// that it can be written in a shape other than pass-through
func decodeRaw(chunk *pcmChunk, file StreamDescription) {
	var order binary.ByteOrder = binary.LittleEndian
	if file.IsBigEndian() {
		order = binary.BigEndian
	}
	bytesPerSample := int(file.BytesPerFrame / file.ChannelsPerFrame)
	samples := chunk.frames * int(file.ChannelsPerFrame)

	if file.IsFloat() {
		chunk.kind = kindFloat
		for i := 0; i < samples; i++ {
			b := chunk.raw[i*bytesPerSample:]
			switch bytesPerSample {
			case 8:
				chunk.floats = append(chunk.floats, float32(math.Float64frombits(order.Uint64(b))))
			default:
				chunk.floats = append(chunk.floats, math.Float32frombits(order.Uint32(b)))
			}
		}
		return
	}

	signed := file.FormatFlags&FlagIsSignedInteger != 0
	container := bytesPerSample * 8
	chunk.kind = kindInt
	chunk.bits = int(file.BitsPerChannel)
	for i := 0; i < samples; i++ {
		b := chunk.raw[i*bytesPerSample : (i+1)*bytesPerSample]
		var u uint32
		if order == binary.BigEndian {
			for _, x := range b {
				u = u<<8 | uint32(x)
			}
		} else {
			for j := len(b) - 1; j >= 0; j-- {
				u = u<<8 | uint32(b[j])
			}
		}
		// Move to the top of a 32-bit word, sign extend, then drop padding
		v := int32(u << (32 - container))
		if !signed {
			v ^= math.MinInt32
		}
		if file.FormatFlags&FlagIsAlignedHigh != 0 || container == chunk.bits {
			v >>= 32 - chunk.bits
		} else {
			v >>= 32 - container
		}
		chunk.ints = append(chunk.ints, v)
	}
}

// writeAlignedInt stores chunk as high-aligned int32 frames in buffer 0
func writeAlignedInt(list *BufferList, chunk *pcmChunk, client StreamDescription) {
	data := list.Buffers[0].Data
	mask := int32(-1) << (32 - client.BitsPerChannel)
	n := chunk.frames * chunk.channels

	switch chunk.kind {
	case kindInt:
		shift := 32 - chunk.bits
		for i := 0; i < n; i++ {
			v := (chunk.ints[i] << shift) & mask
			binary.NativeEndian.PutUint32(data[i*4:], uint32(v))
		}
	case kindFloat:
		for i := 0; i < n; i++ {
			v := floatToInt32(chunk.floats[i]) & mask
			binary.NativeEndian.PutUint32(data[i*4:], uint32(v))
		}
	}
	list.Buffers[0].DataByteSize = n * 4
}

// writePlanarFloat stores chunk as one float32 buffer per channel
func writePlanarFloat(list *BufferList, chunk *pcmChunk) {
	scale := float32(1)
	if chunk.kind == kindInt {
		scale = 1 / float32(int64(1)<<(chunk.bits-1))
	}

	for ch := 0; ch < chunk.channels; ch++ {
		data := list.Buffers[ch].Data
		for i := 0; i < chunk.frames; i++ {
			var v float32
			if chunk.kind == kindInt {
				v = float32(chunk.ints[i*chunk.channels+ch]) * scale
			} else {
				v = chunk.floats[i*chunk.channels+ch]
			}
			binary.NativeEndian.PutUint32(data[i*4:], math.Float32bits(v))
		}
		list.Buffers[ch].DataByteSize = chunk.frames * 4
	}
}

func writePassThrough(list *BufferList, chunk *pcmChunk) {
	list.Buffers[0].DataByteSize = copy(list.Buffers[0].Data, chunk.raw)
}

func floatToInt32(f float32) int32 {
	v := float64(f) * (1 << 31)
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
