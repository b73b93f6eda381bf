package toolbox

import (
	"errors"
	"fmt"
	"io"
)

// ReadFunc pulls up to len(buf) bytes starting at position. It returns the
// number of bytes read and StatusOK, StatusEndOfFile, or another status.
type ReadFunc func(position int64, buf []byte) (int, Status)

// SizeFunc reports the total size of the underlying data in bytes
type SizeFunc func() int64

// callbackReader presents a ReadFunc/SizeFunc pair as an io.ReadSeeker and
// io.ReaderAt so that codec libraries can parse through it. The first bytes
// read during sniffing are kept in header and served from memory, which lets
// forward-only sources be parsed from the start once more.
type callbackReader struct {
	read   ReadFunc
	size   SizeFunc
	pos    int64
	header []byte
}

func newCallbackReader(read ReadFunc, size SizeFunc) *callbackReader {
	return &callbackReader{read: read, size: size}
}

// prime fills the header cache with up to n bytes from position 0
func (r *callbackReader) prime(n int) error {
	buf := make([]byte, n)
	total := 0
	for total < n {
		got, status := r.read(int64(total), buf[total:])
		total += got
		if status == StatusEndOfFile {
			break
		}
		if status != StatusOK {
			return status
		}
		if got == 0 {
			break
		}
	}
	r.header = buf[:total]
	return nil
}

func (r *callbackReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d: %w", off, StatusInvalidPacketOffset)
	}
	n := 0
	if off < int64(len(r.header)) {
		n = copy(p, r.header[off:])
		if n == len(p) {
			return n, nil
		}
	}
	for n < len(p) {
		got, status := r.read(off+int64(n), p[n:])
		n += got
		switch status {
		case StatusOK:
			if got == 0 {
				return n, io.EOF
			}
		case StatusEndOfFile:
			return n, io.EOF
		default:
			return n, status
		}
	}
	return n, nil
}

func (r *callbackReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// A short read is fine for io.Reader; only ask the callback once.
	if r.pos < int64(len(r.header)) {
		n := copy(p, r.header[r.pos:])
		r.pos += int64(n)
		return n, nil
	}
	got, status := r.read(r.pos, p)
	r.pos += int64(got)
	switch status {
	case StatusOK:
		if got == 0 {
			return 0, io.EOF
		}
		return got, nil
	case StatusEndOfFile:
		if got > 0 {
			return got, nil
		}
		return 0, io.EOF
	default:
		return got, status
	}
}

func (r *callbackReader) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.pos + offset
	case io.SeekEnd:
		size := r.size()
		if size < 0 {
			return r.pos, StatusOperationNotSupported
		}
		next = size + offset
	default:
		return r.pos, fmt.Errorf("invalid whence %d: %w", whence, StatusInvalidSeek)
	}
	if next < 0 {
		return r.pos, fmt.Errorf("negative position %d: %w", next, StatusInvalidSeek)
	}
	r.pos = next
	return next, nil
}

// Size returns the size reported by the SizeFunc
func (r *callbackReader) Size() int64 {
	return r.size()
}

// statusFromError maps an error raised while parsing through the reader to
// a toolbox status. Codec libraries report truncated or garbled input with
// their own errors; those become StatusInvalidFile.
func statusFromError(err error) Status {
	if err == nil {
		return StatusOK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return StatusEndOfFile
	}
	return StatusInvalidFile
}
