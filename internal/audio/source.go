package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// ByteSource is a random-access byte provider backing a decoder. A decoder
// never owns its source: callers open it (or let Open do so) and close it
// independently.
type ByteSource interface {
	Open() error
	Close() error
	IsOpen() bool

	// Read behaves like io.Reader. A zero-byte read that hits the end of
	// the data must leave AtEOF true.
	Read(p []byte) (int, error)

	SupportsSeeking() bool
	SeekToOffset(offset int64) error
	Offset() int64
	// Length returns the total size in bytes, or -1 when unknown
	Length() int64
	AtEOF() bool

	// URL identifies the source in logs and error messages
	URL() string
}

// DisplayName returns the last path element of a source URL or path
func DisplayName(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}
	if u, err := url.Parse(sourceURL); err == nil && len(u.Scheme) > 1 && u.Path != "" {
		return path.Base(u.Path)
	}
	return filepath.Base(sourceURL)
}

// FileSource reads a file through an afero filesystem
type FileSource struct {
	fs     afero.Fs
	path   string
	file   afero.File
	offset int64
	length int64
	eof    bool
}

// NewFileSource creates a closed FileSource for path on fs. A nil fs means
// the operating system filesystem.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	slog.Debug("creating new FileSource", "path", path)
	return &FileSource{fs: fs, path: path, length: -1}
}

func (s *FileSource) Open() error {
	if s.file != nil {
		return nil
	}
	if s.path == "" {
		return fmt.Errorf("file path is empty")
	}

	f, err := s.fs.Open(s.path)
	if err != nil {
		slog.Error("failed to open file", "path", s.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return fmt.Errorf("%s is a directory", s.path)
	}

	s.file = f
	s.offset = 0
	s.length = info.Size()
	s.eof = false
	slog.Debug("FileSource opened", "path", s.path, "size_bytes", s.length)
	return nil
}

func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func (s *FileSource) IsOpen() bool {
	return s.file != nil
}

func (s *FileSource) Read(p []byte) (int, error) {
	if s.file == nil {
		return 0, ErrSourceClosed
	}
	n, err := s.file.Read(p)
	s.offset += int64(n)
	if n == 0 && errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

func (s *FileSource) SupportsSeeking() bool {
	return true
}

func (s *FileSource) SeekToOffset(offset int64) error {
	if s.file == nil {
		return ErrSourceClosed
	}
	if offset < 0 {
		return ErrInvalidOffset
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	s.offset = offset
	s.eof = false
	return nil
}

func (s *FileSource) Offset() int64 { return s.offset }
func (s *FileSource) Length() int64 { return s.length }
func (s *FileSource) AtEOF() bool   { return s.eof }
func (s *FileSource) URL() string   { return s.path }

// MemorySource serves a byte slice. It is always seekable.
type MemorySource struct {
	name   string
	data   []byte
	offset int64
	open   bool
	eof    bool
}

// NewMemorySource creates a closed MemorySource. name is used as its URL.
func NewMemorySource(name string, data []byte) *MemorySource {
	return &MemorySource{name: name, data: data}
}

func (s *MemorySource) Open() error {
	s.open = true
	s.offset = 0
	s.eof = false
	return nil
}

func (s *MemorySource) Close() error {
	s.open = false
	return nil
}

func (s *MemorySource) IsOpen() bool { return s.open }

func (s *MemorySource) Read(p []byte) (int, error) {
	if !s.open {
		return 0, ErrSourceClosed
	}
	if s.offset >= int64(len(s.data)) {
		if len(p) > 0 {
			s.eof = true
		}
		return 0, io.EOF
	}
	n := copy(p, s.data[s.offset:])
	s.offset += int64(n)
	return n, nil
}

func (s *MemorySource) SupportsSeeking() bool { return true }

func (s *MemorySource) SeekToOffset(offset int64) error {
	if !s.open {
		return ErrSourceClosed
	}
	if offset < 0 || offset > int64(len(s.data)) {
		return ErrInvalidOffset
	}
	s.offset = offset
	s.eof = false
	return nil
}

func (s *MemorySource) Offset() int64 { return s.offset }
func (s *MemorySource) Length() int64 { return int64(len(s.data)) }
func (s *MemorySource) AtEOF() bool   { return s.eof }
func (s *MemorySource) URL() string   { return s.name }

// ReaderSource adapts a forward-only io.Reader such as a pipe or network
// stream. It cannot seek.
type ReaderSource struct {
	name   string
	reader io.Reader
	length int64
	offset int64
	open   bool
	eof    bool
}

// NewReaderSource creates a closed ReaderSource. length may be -1 when the
// size is unknown. If reader is an io.Closer, Close closes it.
func NewReaderSource(name string, reader io.Reader, length int64) *ReaderSource {
	slog.Debug("creating new ReaderSource", "name", name, "length", length)
	return &ReaderSource{name: name, reader: reader, length: length}
}

func (s *ReaderSource) Open() error {
	if s.reader == nil {
		return ErrSourceClosed
	}
	s.open = true
	return nil
}

func (s *ReaderSource) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	if c, ok := s.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *ReaderSource) IsOpen() bool { return s.open }

func (s *ReaderSource) Read(p []byte) (int, error) {
	if !s.open {
		return 0, ErrSourceClosed
	}
	n, err := s.reader.Read(p)
	s.offset += int64(n)
	if n == 0 && errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

func (s *ReaderSource) SupportsSeeking() bool { return false }

func (s *ReaderSource) SeekToOffset(offset int64) error {
	if offset == s.offset {
		return nil
	}
	return ErrSeekNotSupported
}

func (s *ReaderSource) Offset() int64 { return s.offset }
func (s *ReaderSource) Length() int64 { return s.length }
func (s *ReaderSource) AtEOF() bool   { return s.eof }
func (s *ReaderSource) URL() string   { return s.name }
