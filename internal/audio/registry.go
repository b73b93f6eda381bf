package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNoDecoder is returned when no registered variant accepts a source
var ErrNoDecoder = errors.New("no decoder available for source")

// sniffSize is how many leading bytes are handed to mimetype
const sniffSize = 3072

// Variant describes one decoder implementation
type Variant struct {
	Name             string
	HandlesExtension func(ext string) bool
	HandlesMIMEType  func(mimeType string) bool
	Extensions       func() []string
	New              func(source ByteSource) Decoder
}

// Registry selects decoder variants by extension, MIME type or content
type Registry struct {
	variants []Variant
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	slog.Debug("creating new decoder registry")
	return &Registry{}
}

// ToolboxVariant is the variant backed by ToolboxDecoder
func ToolboxVariant() Variant {
	return Variant{
		Name:             "toolbox",
		HandlesExtension: HandlesFilesWithExtension,
		HandlesMIMEType:  HandlesMIMEType,
		Extensions:       SupportedFileExtensions,
		New: func(source ByteSource) Decoder {
			return NewToolboxDecoder(source)
		},
	}
}

// NewDefaultRegistry creates a registry holding the toolbox variant
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.Register(ToolboxVariant())

	slog.Debug("default decoder registry initialized",
		"variants", registry.Names(),
		"supported_extensions", registry.SupportedExtensions())
	return registry
}

// Register adds a variant. Earlier registrations win ties.
func (r *Registry) Register(v Variant) {
	if v.New == nil {
		slog.Warn("attempted to register variant without constructor", "variant", v.Name)
		return
	}
	r.variants = append(r.variants, v)
	slog.Debug("decoder variant registered",
		"variant", v.Name,
		"total_variants", len(r.variants))
}

// Names returns the registered variant names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.variants))
	for _, v := range r.variants {
		names = append(names, v.Name)
	}
	return names
}

// ForExtension returns the first variant handling ext. A leading dot is
// ignored.
func (r *Registry) ForExtension(ext string) (Variant, bool) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return Variant{}, false
	}
	for _, v := range r.variants {
		if v.HandlesExtension != nil && v.HandlesExtension(ext) {
			return v, true
		}
	}
	return Variant{}, false
}

// ForMIMEType returns the first variant handling mimeType. Parameters such
// as "; charset=" are ignored.
func (r *Registry) ForMIMEType(mimeType string) (Variant, bool) {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return Variant{}, false
	}
	for _, v := range r.variants {
		if v.HandlesMIMEType != nil && v.HandlesMIMEType(mimeType) {
			return v, true
		}
	}
	return Variant{}, false
}

// DetectFormatWithContent picks a variant for source using magic bytes
// first, then the extension of its URL. The source must be open. Its offset
// is restored afterwards when it can seek; forward-only sources are only
// matched by extension so that no bytes are consumed.
func (r *Registry) DetectFormatWithContent(source ByteSource) (Variant, bool) {
	url := source.URL()

	if source.SupportsSeeking() {
		if v, ok := r.detectByContent(source); ok {
			return v, true
		}
	}

	ext := path.Ext(DisplayName(url))
	if v, ok := r.ForExtension(ext); ok {
		slog.Debug("format detected by extension", "url", url, "variant", v.Name)
		return v, true
	}

	slog.Warn("no format detection method succeeded", "url", url)
	return Variant{}, false
}

func (r *Registry) detectByContent(source ByteSource) (Variant, bool) {
	url := source.URL()
	start := source.Offset()
	defer func() {
		if err := source.SeekToOffset(start); err != nil {
			slog.Warn("restoring source offset failed", "url", url, "offset", start, "error", err)
		}
	}()

	if start != 0 {
		if err := source.SeekToOffset(0); err != nil {
			slog.Debug("rewinding source for detection failed", "url", url, "error", err)
			return Variant{}, false
		}
	}

	header := make([]byte, sniffSize)
	n := 0
	for n < len(header) {
		m, err := source.Read(header[n:])
		n += m
		if err != nil || m == 0 {
			break
		}
	}
	if n == 0 {
		slog.Debug("empty content, using extension fallback", "url", url)
		return Variant{}, false
	}

	for mt := mimetype.Detect(header[:n]); mt != nil; mt = mt.Parent() {
		if v, ok := r.ForMIMEType(mt.String()); ok {
			slog.Debug("format detected by magic bytes",
				"url", url,
				"variant", v.Name,
				"mime_type", mt.String(),
				"bytes_analyzed", n)
			return v, true
		}
		for _, alias := range mt.Aliases() {
			if v, ok := r.ForMIMEType(alias); ok {
				return v, true
			}
		}
	}
	return Variant{}, false
}

// NewDecoderForSource opens source if needed and returns a closed decoder
// from the variant detected for it
func (r *Registry) NewDecoderForSource(source ByteSource) (Decoder, error) {
	if !source.IsOpen() {
		if err := source.Open(); err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
	}

	v, ok := r.DetectFormatWithContent(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDecoder, DisplayName(source.URL()))
	}

	slog.Info("decoder selected for source", "url", source.URL(), "variant", v.Name)
	return v.New(source), nil
}

// SupportedExtensions returns the union of every variant's extensions,
// lower-cased, in first-seen order
func (r *Registry) SupportedExtensions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.variants {
		if v.Extensions == nil {
			continue
		}
		for _, ext := range v.Extensions() {
			ext = strings.ToLower(ext)
			if !seen[ext] {
				seen[ext] = true
				out = append(out, ext)
			}
		}
	}
	return out
}
