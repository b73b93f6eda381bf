package toolbox

import (
	"errors"
	"fmt"
	"log/slog"
)

// headerSize is how many leading bytes are cached for sniffing and for
// re-parsing sources that cannot seek back to the start
const headerSize = 512

// File is an open container. It is the low-level handle; ExtFile wraps it
// to add client format conversion.
type File struct {
	fileType FileType
	c        container
	open     bool
}

// OpenWithCallbacks opens a container whose bytes are supplied through read
// and size. The container type is sniffed from the first bytes; hint is
// tried when sniffing fails or the sniffed container cannot be parsed.
func OpenWithCallbacks(read ReadFunc, size SizeFunc, hint FileType) (*File, error) {
	if read == nil || size == nil {
		return nil, StatusUnspecified
	}

	r := newCallbackReader(read, size)
	if err := r.prime(headerSize); err != nil {
		slog.Debug("reading container header failed", "error", err)
		return nil, err
	}
	if len(r.header) == 0 {
		return nil, StatusEndOfFile
	}

	candidates := make([]FileType, 0, 2)
	if sniffed := sniffFileType(r.header); sniffed != FileTypeUnknown {
		candidates = append(candidates, sniffed)
	}
	if hint != FileTypeUnknown && (len(candidates) == 0 || candidates[0] != hint) {
		candidates = append(candidates, hint)
	}
	if len(candidates) == 0 {
		return nil, StatusUnsupportedFileType
	}

	var lastErr error = StatusUnsupportedFileType
	for _, candidate := range candidates {
		info := lookupFileType(candidate)
		if info == nil {
			continue
		}

		r.pos = 0
		c, err := info.open(r)
		if err != nil {
			slog.Debug("container open failed",
				"file_type", candidate.String(),
				"error", err)
			lastErr = err
			// An I/O failure will not go away with another parser
			if s := StatusOf(err); s == StatusIOError || s == StatusOperationNotSupported {
				return nil, err
			}
			continue
		}

		f := &File{fileType: c.fileType(), c: c, open: true}
		slog.Debug("container opened",
			"file_type", f.fileType.String(),
			"format", c.dataFormat().String())
		return f, nil
	}

	return nil, lastErr
}

// FileType returns the concrete container type
func (f *File) FileType() (FileType, error) {
	if !f.isOpen() {
		return FileTypeUnknown, StatusNotOpen
	}
	return f.fileType, nil
}

// DataFormat returns the encoding stored in the container
func (f *File) DataFormat() (StreamDescription, error) {
	if !f.isOpen() {
		return StreamDescription{}, StatusNotOpen
	}
	return f.c.dataFormat(), nil
}

// ChannelLayout returns the channel layout. StatusUnsupportedProperty means
// the container defines none.
func (f *File) ChannelLayout() (*ChannelLayout, error) {
	if !f.isOpen() {
		return nil, StatusNotOpen
	}
	return f.c.channelLayout()
}

// Close releases the container. Closing twice returns StatusNotOpen.
func (f *File) Close() error {
	if !f.isOpen() {
		return StatusNotOpen
	}
	f.open = false
	if err := f.c.close(); err != nil {
		return fmt.Errorf("closing %s container: %w", f.fileType, errors.Join(StatusIOError, err))
	}
	return nil
}

func (f *File) isOpen() bool {
	return f != nil && f.open
}
