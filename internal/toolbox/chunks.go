package toolbox

import (
	"encoding/binary"
	"errors"
	"io"
)

// chunk is one RIFF or IFF chunk. offset is where the payload starts.
type chunk struct {
	id     string
	offset int64
	size   int64
}

var errStopWalk = errors.New("stop chunk walk")

// walkChunks visits the chunks that follow a 12-byte RIFF/FORM header until
// visit returns errStopWalk or the data runs out. Sizes are read with order;
// payloads are padded to even lengths.
func walkChunks(r io.ReaderAt, order binary.ByteOrder, visit func(chunk) error) error {
	var hdr [8]byte
	offset := int64(12)
	for {
		n, err := r.ReadAt(hdr[:], offset)
		if n < len(hdr) {
			if err == nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		c := chunk{
			id:     string(hdr[:4]),
			offset: offset + 8,
			size:   int64(order.Uint32(hdr[4:])),
		}
		if err := visit(c); err != nil {
			if errors.Is(err, errStopWalk) {
				return nil
			}
			return err
		}

		offset = c.offset + c.size + c.size&1
	}
}

// readFormHeader reads the 12-byte container header and returns the outer
// and form identifiers, e.g. "RIFF"/"WAVE" or "FORM"/"AIFC"
func readFormHeader(r io.ReaderAt) (outer, form string, err error) {
	var hdr [12]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return "", "", StatusInvalidFile
	}
	return string(hdr[:4]), string(hdr[8:]), nil
}
