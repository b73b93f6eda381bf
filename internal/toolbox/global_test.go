package toolbox

import (
	"slices"
	"testing"
)

func TestGlobalInfoExtensions(t *testing.T) {
	exts, err := GlobalInfo(PropertyAllExtensions)
	if err != nil {
		t.Fatalf("GlobalInfo failed: %v", err)
	}

	for _, want := range []string{"wav", "aiff", "mp3", "flac", "ogg", "aac"} {
		if !slices.Contains(exts, want) {
			t.Errorf("extension %q missing from %v", want, exts)
		}
	}

	// Callers own the result
	exts[0] = "mutated"
	again, _ := GlobalInfo(PropertyAllExtensions)
	if again[0] == "mutated" {
		t.Error("GlobalInfo returned shared storage")
	}
}

func TestGlobalInfoMIMETypes(t *testing.T) {
	mimes, err := GlobalInfo(PropertyAllMIMETypes)
	if err != nil {
		t.Fatalf("GlobalInfo failed: %v", err)
	}
	for _, want := range []string{"audio/wav", "audio/mpeg", "audio/flac", "audio/ogg", "audio/aac"} {
		if !slices.Contains(mimes, want) {
			t.Errorf("MIME type %q missing", want)
		}
	}
}

func TestGlobalInfoUnknownProperty(t *testing.T) {
	if _, err := GlobalInfo(GlobalProperty(0)); err != StatusUnknownProperty {
		t.Errorf("expected StatusUnknownProperty, got %v", err)
	}
}

func TestFileTypeLookups(t *testing.T) {
	tests := []struct {
		ext  string
		want FileType
	}{
		{"wav", FileTypeWAVE},
		{".WAV", FileTypeWAVE},
		{"Mp3", FileTypeMP3},
		{"aifc", FileTypeAIFF},
		{"oga", FileTypeOggVorbis},
		{"adts", FileTypeAACADTS},
		{"txt", FileTypeUnknown},
		{"", FileTypeUnknown},
	}
	for _, tt := range tests {
		if got := FileTypeForExtension(tt.ext); got != tt.want {
			t.Errorf("FileTypeForExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}

	if got := FileTypeForMIMEType("audio/ogg; codecs=vorbis"); got != FileTypeOggVorbis {
		t.Errorf("MIME parameters not ignored, got %v", got)
	}
	if got := FileTypeForMIMEType("AUDIO/X-FLAC"); got != FileTypeFLAC {
		t.Errorf("MIME lookup not case-insensitive, got %v", got)
	}
}

func TestFileTypeName(t *testing.T) {
	if got := FileTypeName(FileTypeAIFC); got != "AIFF-C" {
		t.Errorf("FileTypeName(AIFC) = %q", got)
	}
	if got := FileTypeName(FileTypeMP3); got != "MPEG Layer 3" {
		t.Errorf("FileTypeName(MP3) = %q", got)
	}
	if got := FileTypeName(FileTypeM4A); got != "m4af" {
		t.Errorf("FileTypeName(M4A) = %q", got)
	}
}
