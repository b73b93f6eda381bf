package audio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gopxl/beep"

	"tonearm.click/internal/toolbox"
)

// ErrDecoderNotOpen is returned when a closed decoder is wrapped or used
var ErrDecoderNotOpen = errors.New("decoder is not open")

// ErrDecodeStalled is reported when the decoder stops producing audio
// before the known end of the stream
var ErrDecodeStalled = errors.New("decoder produced no audio before the end of the stream")

// defaultStreamFrames is the read size used by Streamer
const defaultStreamFrames = 4096

// Streamer exposes an open Decoder as a beep.StreamSeekCloser producing
// stereo float64 frames. Mono is duplicated; channels past the second are
// dropped.
type Streamer struct {
	dec    Decoder
	format beep.Format
	list   *toolbox.BufferList
	frames int

	pending [][]float64
	off     int
	err     error
}

// NewStreamer wraps dec, which must already be open. bufferFrames sets the
// size of each ReadAudio call; zero selects a default.
func NewStreamer(dec Decoder, bufferFrames int) (*Streamer, error) {
	if dec == nil || !dec.IsOpen() {
		return nil, ErrDecoderNotOpen
	}
	if bufferFrames <= 0 {
		bufferFrames = defaultStreamFrames
	}

	client := dec.Format()
	precision := int(client.BitsPerChannel+7) / 8
	if precision < 1 || precision > 4 {
		precision = 4
	}
	s := &Streamer{
		dec: dec,
		format: beep.Format{
			SampleRate:  beep.SampleRate(int(client.SampleRate)),
			NumChannels: 2,
			Precision:   precision,
		},
		list:   toolbox.NewBufferList(client, bufferFrames),
		frames: bufferFrames,
	}
	slog.Debug("streamer created",
		"url", dec.Source().URL(),
		"sample_rate", client.SampleRate,
		"channels", client.ChannelsPerFrame,
		"buffer_frames", bufferFrames)
	return s, nil
}

// Format returns the beep format of the stream
func (s *Streamer) Format() beep.Format { return s.format }

func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}

	n := 0
	for n < len(samples) {
		if s.pending == nil || s.off >= len(s.pending[0]) {
			if !s.fill() {
				break
			}
		}
		left := s.pending[0]
		right := left
		if len(s.pending) > 1 {
			right = s.pending[1]
		}
		for n < len(samples) && s.off < len(left) {
			samples[n][0] = left[s.off]
			samples[n][1] = right[s.off]
			n++
			s.off++
		}
	}
	return n, n > 0
}

// fill decodes the next buffer. It returns false at the end of the stream
// or on error. An empty read short of TotalFrames is an error.
func (s *Streamer) fill() bool {
	for i := range s.list.Buffers {
		s.list.Buffers[i].DataByteSize = 0
	}
	got := s.dec.ReadAudio(s.list, uint32(s.frames))
	if got == 0 {
		s.pending = nil
		cur, total := s.dec.CurrentFrame(), s.dec.TotalFrames()
		if cur >= 0 && total >= 0 && cur < total {
			s.err = fmt.Errorf("%w: stopped at frame %d of %d", ErrDecodeStalled, cur, total)
			slog.Error("streamer stalled", "url", s.dec.Source().URL(), "frame", cur, "total_frames", total)
		}
		return false
	}

	decoded, err := toolbox.Samples(s.dec.Format(), s.list, int(got))
	if err != nil {
		s.err = fmt.Errorf("failed to convert decoded audio: %w", err)
		slog.Error("streamer conversion failed", "url", s.dec.Source().URL(), "error", err)
		s.pending = nil
		return false
	}
	s.pending = decoded
	s.off = 0
	return true
}

func (s *Streamer) Err() error { return s.err }

// Len is the total number of frames, or zero when it is unknown
func (s *Streamer) Len() int {
	total := s.dec.TotalFrames()
	if total < 0 {
		return 0
	}
	return int(total)
}

// Position is the next frame Stream will deliver
func (s *Streamer) Position() int {
	cur := s.dec.CurrentFrame()
	if cur < 0 {
		return 0
	}
	if s.pending != nil {
		cur -= int64(len(s.pending[0]) - s.off)
	}
	return int(cur)
}

func (s *Streamer) Seek(p int) error {
	if got := s.dec.SeekToFrame(int64(p)); got < 0 {
		return fmt.Errorf("failed to seek to frame %d", p)
	}
	s.pending = nil
	s.off = 0
	s.err = nil
	return nil
}

// Close closes the underlying decoder
func (s *Streamer) Close() error {
	s.pending = nil
	return s.dec.Close()
}

var _ beep.StreamSeekCloser = (*Streamer)(nil)
