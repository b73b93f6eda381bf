package audio

import "tonearm.click/internal/toolbox"

// NegotiateClientFormat picks the format a decoder delivers for a source
// encoding:
//
//   - linear PCM is passed through unchanged
//   - Apple Lossless becomes interleaved, high-aligned signed integers in
//     32-bit containers, with the significant bits taken from the source
//     flags
//   - everything else becomes planar native-endian float32
//
// Channel count and sample rate always follow the source.
func NegotiateClientFormat(source toolbox.StreamDescription) toolbox.StreamDescription {
	switch source.FormatID {
	case toolbox.FormatLinearPCM:
		return source

	case toolbox.FormatAppleLossless:
		client := toolbox.StreamDescription{
			FormatID:         toolbox.FormatLinearPCM,
			FormatFlags:      toolbox.FlagsNativeEndian | toolbox.FlagIsSignedInteger | toolbox.FlagIsAlignedHigh,
			SampleRate:       source.SampleRate,
			ChannelsPerFrame: source.ChannelsPerFrame,
			BytesPerPacket:   4 * source.ChannelsPerFrame,
			FramesPerPacket:  1,
		}
		// An unrecognised flag leaves the bit depth at zero, which the
		// toolbox then refuses
		switch source.FormatFlags {
		case toolbox.LosslessFlag16BitSourceData:
			client.BitsPerChannel = 16
		case toolbox.LosslessFlag20BitSourceData:
			client.BitsPerChannel = 20
		case toolbox.LosslessFlag24BitSourceData:
			client.BitsPerChannel = 24
		case toolbox.LosslessFlag32BitSourceData:
			client.BitsPerChannel = 32
		}
		client.BytesPerFrame = client.BytesPerPacket * client.FramesPerPacket
		return client

	default:
		return toolbox.StreamDescription{
			FormatID:         toolbox.FormatLinearPCM,
			FormatFlags:      toolbox.FlagsNativeFloatPacked | toolbox.FlagIsNonInterleaved,
			SampleRate:       source.SampleRate,
			ChannelsPerFrame: source.ChannelsPerFrame,
			BitsPerChannel:   32,
			BytesPerPacket:   4,
			FramesPerPacket:  1,
			BytesPerFrame:    4,
		}
	}
}
