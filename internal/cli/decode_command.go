package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"tonearm.click/internal/audio"
)

// decodeChunkFrames is how many frames are pulled from the streamer per
// WAV write
const decodeChunkFrames = 2048

// ErrInvalidBitDepth is returned for --bit-depth values other than 16 and 24
var ErrInvalidBitDepth = errors.New("bit depth must be 16 or 24")

type decodeOptions struct {
	startFrame int64
	frames     int64
	bitDepth   int
}

func newDecodeCommand() *cobra.Command {
	var opts decodeOptions

	decodeCmd := &cobra.Command{
		Use:   "decode IN OUT.wav",
		Short: "Decode an audio file to a stereo WAV file",
		Long: `Decode IN through its decoder and write the result to OUT.wav as stereo
integer PCM. Mono input is written to both channels; only the first two
channels of wider input are kept.

Examples:
  tonearm decode song.flac song.wav
  tonearm decode --start-frame 44100 --frames 88200 song.mp3 clip.wav
  tonearm decode --bit-depth 24 take.aiff take.wav`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, args[0], args[1], opts)
		},
	}

	decodeCmd.Flags().Int64Var(&opts.startFrame, "start-frame", 0, "First frame to decode")
	decodeCmd.Flags().Int64Var(&opts.frames, "frames", 0, "Number of frames to decode (0 = to the end)")
	decodeCmd.Flags().IntVar(&opts.bitDepth, "bit-depth", 0, "Output bit depth, 16 or 24 (default from config)")

	return decodeCmd
}

func runDecode(cmd *cobra.Command, inPath, outPath string, opts decodeOptions) error {
	cli, err := mustCLI(cmd)
	if err != nil {
		return err
	}

	if opts.bitDepth == 0 {
		opts.bitDepth = cli.cfg.Decode.DefaultBitDepth
	}
	if opts.bitDepth == 0 {
		opts.bitDepth = 16
	}
	if opts.bitDepth != 16 && opts.bitDepth != 24 {
		return fmt.Errorf("%w, got %d", ErrInvalidBitDepth, opts.bitDepth)
	}
	if opts.startFrame < 0 || opts.frames < 0 {
		return fmt.Errorf("--start-frame and --frames must not be negative")
	}

	slog.Debug("running decode command",
		"in", inPath,
		"out", outPath,
		"start_frame", opts.startFrame,
		"frames", opts.frames,
		"bit_depth", opts.bitDepth)

	extra := map[string]any{"output": outPath, "bit_depth": opts.bitDepth, "start_frame": opts.startFrame}

	f, err := cli.openFile(inPath)
	if err != nil {
		cli.record("decode", inPath, nil, 0, err, extra)
		return err
	}
	defer f.Close()

	written, err := cli.decodeToWAV(f.decoder, outPath, opts)
	cli.record("decode", inPath, f, written, err, extra)
	if err != nil {
		return err
	}

	cmd.Printf("wrote %d frames to %s\n", written, outPath)
	return nil
}

// decodeToWAV streams dec into a new WAV file at outPath and returns the
// number of frames written
func (c *CLI) decodeToWAV(dec audio.Decoder, outPath string, opts decodeOptions) (int64, error) {
	streamer, err := audio.NewStreamer(dec, c.cfg.Decode.BufferFrames)
	if err != nil {
		return 0, err
	}

	if opts.startFrame > 0 {
		if err := streamer.Seek(int(opts.startFrame)); err != nil {
			return 0, fmt.Errorf("cannot start at frame %d: %w", opts.startFrame, err)
		}
	}

	out, err := c.fs.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	sampleRate := int(streamer.Format().SampleRate)
	enc := wav.NewEncoder(out, sampleRate, opts.bitDepth, 2, 1)

	samples := make([][2]float64, decodeChunkFrames)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, 0, 2*decodeChunkFrames),
		SourceBitDepth: opts.bitDepth,
	}
	scale := float64(int64(1)<<(opts.bitDepth-1)) - 1

	var written int64
	for opts.frames == 0 || written < opts.frames {
		want := int64(len(samples))
		if opts.frames > 0 && opts.frames-written < want {
			want = opts.frames - written
		}
		n, ok := streamer.Stream(samples[:want])
		if n > 0 {
			buf.Data = buf.Data[:0]
			for _, frame := range samples[:n] {
				buf.Data = append(buf.Data, quantize(frame[0], scale), quantize(frame[1], scale))
			}
			if err := enc.Write(buf); err != nil {
				return written, fmt.Errorf("failed to write WAV data: %w", err)
			}
			written += int64(n)
		}
		if !ok {
			break
		}
	}

	if err := streamer.Err(); err != nil {
		return written, fmt.Errorf("decoding failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return written, fmt.Errorf("failed to finish WAV file: %w", err)
	}

	slog.Info("decode finished", "out", outPath, "frames", written, "sample_rate", sampleRate)
	return written, nil
}

// quantize maps a float sample in [-1, 1] to a signed integer, clipping
// out-of-range input
func quantize(v, scale float64) int {
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * scale))
}
