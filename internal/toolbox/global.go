package toolbox

import (
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// GlobalProperty selects a process wide capability list
type GlobalProperty uint32

// Global capability properties
const (
	PropertyAllExtensions GlobalProperty = 'a'<<24 | 'l'<<16 | 'x'<<8 | 't'
	PropertyAllMIMETypes  GlobalProperty = 'a'<<24 | 'm'<<16 | 'i'<<8 | 'm'
	PropertyAllFileTypes  GlobalProperty = 'a'<<24 | 't'<<16 | 'y'<<8 | 'p'
)

// containerInfo is one row of the container table. Open dispatches on this
// table and GlobalInfo reports from it, so capability answers always agree
// with what OpenWithCallbacks can actually open.
type containerInfo struct {
	fileType   FileType
	name       string
	extensions []string
	mimeTypes  []string
	open       func(r *callbackReader) (container, error)
}

var containerTable = []containerInfo{
	{
		fileType:   FileTypeWAVE,
		name:       "WAVE",
		extensions: []string{"wav", "wave"},
		mimeTypes:  []string{"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave"},
		open:       openWave,
	},
	{
		fileType:   FileTypeAIFF,
		name:       "AIFF",
		extensions: []string{"aiff", "aif", "aifc"},
		mimeTypes:  []string{"audio/aiff", "audio/x-aiff", "audio/x-aifc"},
		open:       openAIFF,
	},
	{
		fileType:   FileTypeMP3,
		name:       "MPEG Layer 3",
		extensions: []string{"mp3", "mpga"},
		mimeTypes:  []string{"audio/mpeg", "audio/mpeg3", "audio/mp3", "audio/x-mpeg"},
		open:       openMP3,
	},
	{
		fileType:   FileTypeFLAC,
		name:       "FLAC",
		extensions: []string{"flac"},
		mimeTypes:  []string{"audio/flac", "audio/x-flac"},
		open:       openFLAC,
	},
	{
		fileType:   FileTypeOggVorbis,
		name:       "Ogg Vorbis",
		extensions: []string{"ogg", "oga"},
		mimeTypes:  []string{"audio/ogg", "application/ogg", "audio/vorbis"},
		open:       openVorbis,
	},
	{
		fileType:   FileTypeAACADTS,
		name:       "AAC ADTS",
		extensions: []string{"aac", "adts"},
		mimeTypes:  []string{"audio/aac", "audio/aacp", "audio/x-aac"},
		open:       openADTS,
	},
}

// GlobalInfo returns a fresh copy of a process wide capability list
func GlobalInfo(property GlobalProperty) ([]string, error) {
	var out []string
	switch property {
	case PropertyAllExtensions:
		for _, info := range containerTable {
			out = append(out, info.extensions...)
		}
	case PropertyAllMIMETypes:
		for _, info := range containerTable {
			out = append(out, info.mimeTypes...)
		}
	case PropertyAllFileTypes:
		for _, info := range containerTable {
			out = append(out, info.fileType.String())
		}
	default:
		return nil, StatusUnknownProperty
	}
	return out, nil
}

// FileTypeName returns the display name of a container type
func FileTypeName(t FileType) string {
	if t == FileTypeAIFC {
		return "AIFF-C"
	}
	if info := lookupFileType(t); info != nil {
		return info.name
	}
	return t.String()
}

// FileTypeForExtension maps a file extension, with or without the leading
// dot, to its container type
func FileTypeForExtension(ext string) FileType {
	ext = strings.TrimPrefix(ext, ".")
	for _, info := range containerTable {
		for _, candidate := range info.extensions {
			if strings.EqualFold(candidate, ext) {
				return info.fileType
			}
		}
	}
	return FileTypeUnknown
}

// FileTypeForMIMEType maps a MIME type to its container type
func FileTypeForMIMEType(mime string) FileType {
	if info := lookupMIME(mime); info != nil {
		return info.fileType
	}
	return FileTypeUnknown
}

func lookupFileType(t FileType) *containerInfo {
	if t == FileTypeAIFC {
		t = FileTypeAIFF
	}
	for i := range containerTable {
		if containerTable[i].fileType == t {
			return &containerTable[i]
		}
	}
	return nil
}

func lookupMIME(mime string) *containerInfo {
	// Drop parameters such as "; codecs=vorbis"
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(mime)
	for i := range containerTable {
		for _, candidate := range containerTable[i].mimeTypes {
			if strings.EqualFold(candidate, mime) {
				return &containerTable[i]
			}
		}
	}
	return nil
}

// sniffFileType detects the container from leading bytes. mimetype reports
// the most specific match; parents are walked so that e.g. an Ogg stream
// that is not recognised as audio still resolves through application/ogg.
func sniffFileType(header []byte) FileType {
	if len(header) == 0 {
		return FileTypeUnknown
	}

	for m := mimetype.Detect(header); m != nil; m = m.Parent() {
		if info := lookupMIME(m.String()); info != nil {
			slog.Debug("container sniffed",
				"mime_type", m.String(),
				"file_type", info.fileType.String())
			return info.fileType
		}
		for _, alias := range m.Aliases() {
			if info := lookupMIME(alias); info != nil {
				return info.fileType
			}
		}
	}

	slog.Debug("container not recognised by content", "bytes_analyzed", len(header))
	return FileTypeUnknown
}
