package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// ErrFileNotResolved is returned when neither a path nor any of its
// extension candidates exists
var ErrFileNotResolved = errors.New("no audio file found")

// FileResolver finds audio files on a filesystem, trying each supported
// extension in order when the given path does not exist as is
type FileResolver struct {
	fs         afero.Fs
	extensions []string
}

// NewFileResolver creates a FileResolver. A nil fs means the operating
// system filesystem.
func NewFileResolver(fs afero.Fs, extensions []string) *FileResolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	slog.Debug("creating file resolver", "extension_count", len(extensions))
	return &FileResolver{fs: fs, extensions: extensions}
}

// Resolve returns path when it names a regular file, otherwise the first
// path+"."+ext that does
func (f *FileResolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if f.isFile(path) {
		return path, nil
	}

	for i, ext := range f.extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		candidate := path + ext
		if f.isFile(candidate) {
			slog.Debug("file resolved with extension",
				"path", path,
				"resolved_path", candidate,
				"extension_index", i)
			return candidate, nil
		}
	}

	slog.Debug("file resolution failed", "path", path, "extensions_tried", len(f.extensions))
	return "", fmt.Errorf("%w: %s", ErrFileNotResolved, path)
}

func (f *FileResolver) isFile(path string) bool {
	info, err := f.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Extensions returns the candidate extensions in priority order
func (f *FileResolver) Extensions() []string {
	return f.extensions
}
