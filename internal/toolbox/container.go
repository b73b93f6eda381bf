package toolbox

// sampleKind tells the converter how a container hands over decoded audio
type sampleKind int

const (
	// kindRaw is linear PCM bytes laid out exactly as the file's data format
	kindRaw sampleKind = iota
	// kindInt is interleaved signed integers with bits significant bits
	kindInt
	// kindFloat is interleaved float32 in [-1, 1]
	kindFloat
)

// pcmChunk is the hand-off between a container and the client converter
type pcmChunk struct {
	kind     sampleKind
	channels int
	bits     int
	frames   int
	raw      []byte
	ints     []int32
	floats   []float32
}

func (c *pcmChunk) reset(kind sampleKind, channels, bits int) {
	c.kind = kind
	c.channels = channels
	c.bits = bits
	c.frames = 0
	c.raw = c.raw[:0]
	c.ints = c.ints[:0]
	c.floats = c.floats[:0]
}

// container is one parsed file format. Implementations decode frames on
// demand and keep their own read position.
type container interface {
	fileType() FileType
	dataFormat() StreamDescription
	// sampleShape describes what readFrames appends: the sample kind and,
	// for kindInt, the number of significant bits
	sampleShape() (sampleKind, int)
	// channelLayout returns StatusUnsupportedProperty when the format has
	// no defined channel order
	channelLayout() (*ChannelLayout, error)
	lengthFrames() (int64, error)
	// readFrames appends up to frames frames to chunk. Zero frames with a
	// nil error means the end of the stream.
	readFrames(chunk *pcmChunk, frames int) (int, error)
	seek(frame int64) error
	tell() (int64, error)
	close() error
}

// intQueue buffers decoded interleaved integer samples between packets
type intQueue struct {
	samples []int32
	off     int
}

func (q *intQueue) frames(channels int) int {
	return (len(q.samples) - q.off) / channels
}

func (q *intQueue) push(samples []int32) {
	if q.off > 0 && q.off == len(q.samples) {
		q.samples = q.samples[:0]
		q.off = 0
	}
	q.samples = append(q.samples, samples...)
}

func (q *intQueue) pop(dst []int32, frames, channels int) []int32 {
	n := frames * channels
	dst = append(dst, q.samples[q.off:q.off+n]...)
	q.off += n
	return dst
}

func (q *intQueue) drop(frames, channels int) {
	q.off += frames * channels
	if q.off > len(q.samples) {
		q.off = len(q.samples)
	}
}

func (q *intQueue) clear() {
	q.samples = q.samples[:0]
	q.off = 0
}

// floatQueue buffers decoded interleaved float samples between packets
type floatQueue struct {
	samples []float32
	off     int
}

func (q *floatQueue) frames(channels int) int {
	return (len(q.samples) - q.off) / channels
}

func (q *floatQueue) push(samples []float32) {
	if q.off > 0 && q.off == len(q.samples) {
		q.samples = q.samples[:0]
		q.off = 0
	}
	q.samples = append(q.samples, samples...)
}

func (q *floatQueue) pop(dst []float32, frames, channels int) []float32 {
	n := frames * channels
	dst = append(dst, q.samples[q.off:q.off+n]...)
	q.off += n
	return dst
}

func (q *floatQueue) drop(frames, channels int) {
	q.off += frames * channels
	if q.off > len(q.samples) {
		q.off = len(q.samples)
	}
}

func (q *floatQueue) clear() {
	q.samples = q.samples[:0]
	q.off = 0
}

// Channel orders shared by formats that follow the WAVE/FLAC and Vorbis
// conventions for up to eight channels.
var (
	waveChannelOrder = [][]ChannelLabel{
		1: {ChannelLabelMono},
		2: {ChannelLabelLeft, ChannelLabelRight},
		3: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelCenter},
		4: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround},
		5: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelCenter, ChannelLabelLeftSurround, ChannelLabelRightSurround},
		6: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelCenter, ChannelLabelLFEScreen, ChannelLabelLeftSurround, ChannelLabelRightSurround},
		7: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelCenter, ChannelLabelLFEScreen, ChannelLabelCenterSurround, ChannelLabelLeftSurroundDirect, ChannelLabelRightSurroundDirect},
		8: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelCenter, ChannelLabelLFEScreen, ChannelLabelLeftSurround, ChannelLabelRightSurround, ChannelLabelLeftSurroundDirect, ChannelLabelRightSurroundDirect},
	}
	vorbisChannelOrder = [][]ChannelLabel{
		1: {ChannelLabelMono},
		2: {ChannelLabelLeft, ChannelLabelRight},
		3: {ChannelLabelLeft, ChannelLabelCenter, ChannelLabelRight},
		4: {ChannelLabelLeft, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround},
		5: {ChannelLabelLeft, ChannelLabelCenter, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround},
		6: {ChannelLabelLeft, ChannelLabelCenter, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround, ChannelLabelLFEScreen},
		7: {ChannelLabelLeft, ChannelLabelCenter, ChannelLabelRight, ChannelLabelLeftSurroundDirect, ChannelLabelRightSurroundDirect, ChannelLabelCenterSurround, ChannelLabelLFEScreen},
		8: {ChannelLabelLeft, ChannelLabelCenter, ChannelLabelRight, ChannelLabelLeftSurroundDirect, ChannelLabelRightSurroundDirect, ChannelLabelLeftSurround, ChannelLabelRightSurround, ChannelLabelLFEScreen},
	}
	// MPEG-4 channel configurations 1 through 7
	aacChannelOrder = [][]ChannelLabel{
		1: {ChannelLabelMono},
		2: {ChannelLabelLeft, ChannelLabelRight},
		3: {ChannelLabelCenter, ChannelLabelLeft, ChannelLabelRight},
		4: {ChannelLabelCenter, ChannelLabelLeft, ChannelLabelRight, ChannelLabelCenterSurround},
		5: {ChannelLabelCenter, ChannelLabelLeft, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround},
		6: {ChannelLabelCenter, ChannelLabelLeft, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround, ChannelLabelLFEScreen},
		7: {ChannelLabelCenter, ChannelLabelLeftCenter, ChannelLabelRightCenter, ChannelLabelLeft, ChannelLabelRight, ChannelLabelLeftSurround, ChannelLabelRightSurround, ChannelLabelLFEScreen},
	}
)

// layoutFromOrder copies the layout stored at index, which is the channel
// count for WAVE and Vorbis and the channel configuration for AAC
func layoutFromOrder(order [][]ChannelLabel, index int) (*ChannelLayout, error) {
	if index <= 0 || index >= len(order) || order[index] == nil {
		return nil, StatusUnsupportedProperty
	}
	return newLayout(append([]ChannelLabel(nil), order[index]...)...), nil
}
