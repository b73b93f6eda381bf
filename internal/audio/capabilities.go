package audio

import (
	"log/slog"
	"strings"

	"tonearm.click/internal/toolbox"
)

// capabilityQuery fetches a global capability list. Tests swap it out.
var capabilityQuery = toolbox.GlobalInfo

func queryCapabilities(property toolbox.GlobalProperty, what string) []string {
	values, err := capabilityQuery(property)
	if err != nil {
		slog.Error("querying decoder capabilities failed", "property", what, "error", err)
		return nil
	}
	return values
}

// SupportedFileExtensions returns the file extensions the toolbox decoder
// can open, without leading dots. Each call returns a new slice.
func SupportedFileExtensions() []string {
	return queryCapabilities(toolbox.PropertyAllExtensions, "extensions")
}

// SupportedMIMETypes returns the MIME types the toolbox decoder can open.
// Each call returns a new slice.
func SupportedMIMETypes() []string {
	return queryCapabilities(toolbox.PropertyAllMIMETypes, "mime_types")
}

// HandlesFilesWithExtension reports whether ext, compared without regard to
// case, is a supported extension
func HandlesFilesWithExtension(ext string) bool {
	if ext == "" {
		return false
	}
	return containsFold(SupportedFileExtensions(), ext)
}

// HandlesMIMEType reports whether mimeType, compared without regard to case,
// is a supported MIME type
func HandlesMIMEType(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	return containsFold(SupportedMIMETypes(), mimeType)
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
