// Package fs hands out the afero filesystems tonearm reads audio and
// configuration through.
package fs

import "github.com/spf13/afero"

// Factory provides filesystem instances for production and testing
type Factory interface {
	// Production returns the real OS filesystem
	Production() afero.Fs
	// Memory returns a fresh in-memory filesystem
	Memory() afero.Fs
}

// DefaultFactory is the standard Factory
type DefaultFactory struct{}

func NewDefaultFactory() Factory {
	return &DefaultFactory{}
}

func (f *DefaultFactory) Production() afero.Fs {
	return afero.NewOsFs()
}

func (f *DefaultFactory) Memory() afero.Fs {
	return afero.NewMemMapFs()
}
