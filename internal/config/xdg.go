package config

import (
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "tonearm"

// XDGDirs provides XDG Base Directory compliant paths for tonearm
type XDGDirs struct{}

// NewXDGDirs creates a new XDG directory manager
func NewXDGDirs() *XDGDirs {
	return &XDGDirs{}
}

// GetCachePath returns the cache directory path for a specific purpose
func (x *XDGDirs) GetCachePath(purpose string) string {
	return joinPurpose(xdg.CacheHome, purpose)
}

// GetDataPath returns the data directory path for a specific purpose
func (x *XDGDirs) GetDataPath(purpose string) string {
	return joinPurpose(xdg.DataHome, purpose)
}

func joinPurpose(home, purpose string) string {
	dir := filepath.Join(home, appDir)
	if purpose != "" {
		dir = filepath.Join(dir, purpose)
	}
	return dir
}

// GetConfigPaths returns prioritized paths where config files can be found
// Returns paths in search order: user config dir, then system config dirs
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	paths := []string{filepath.Join(xdg.ConfigHome, appDir, filename)}
	for _, configDir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(configDir, appDir, filename))
	}

	slog.Debug("generated config paths",
		"filename", filename,
		"total_paths", len(paths),
		"user_path", paths[0])

	return paths
}
