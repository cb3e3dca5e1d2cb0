package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the user-selected export format.
type Format string

const (
	FormatOriginal Format = "original"
	FormatJPG      Format = "jpg"
	FormatPNG      Format = "png"
	FormatWebP     Format = "webp"
)

// Quality bounds in percent.
const (
	MinQuality     = 10
	MaxQuality     = 100
	DefaultQuality = 80
)

// MIME types the exporter can produce.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEGIF  = "image/gif"
	MIMETIFF = "image/tiff"
	MIMEBMP  = "image/bmp"
)

// Formats lists the selectable formats.
func Formats() []Format {
	return []Format{FormatOriginal, FormatJPG, FormatPNG, FormatWebP}
}

// ParseFormat accepts a format name case-insensitively. "jpeg" is read as jpg.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatOriginal, FormatJPG, FormatPNG, FormatWebP:
		return f, nil
	case "jpeg":
		return FormatJPG, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
	}
}

// Settings are the export choices of a session.
type Settings struct {
	Format  Format `json:"format"`
	Quality int    `json:"quality"`
}

// DefaultSettings keeps the source format at quality 80.
func DefaultSettings() Settings {
	return Settings{Format: FormatOriginal, Quality: DefaultQuality}
}

func (s Settings) Validate() error {
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return err
	}
	if s.Quality < MinQuality || s.Quality > MaxQuality {
		return fmt.Errorf("quality %d not in [%d,%d]", s.Quality, MinQuality, MaxQuality)
	}
	return nil
}

// Native describes the uploaded file's own encoding.
type Native struct {
	MIMEType  string `json:"mime_type"`
	Extension string `json:"extension"`
}

// NativeFor derives the native description from a detected MIME type and the
// uploaded file name. The extension is the lowercased extension of name. A
// nameless upload takes the canonical extension of its MIME type.
func NativeFor(mimeType, name string) Native {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ExtensionFor(mimeType)
	}
	return Native{MIMEType: mimeType, Extension: ext}
}

// ExtensionFor returns the canonical file extension of mimeType, or ".png"
// for types the MIME registry does not know.
func ExtensionFor(mimeType string) string {
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	return ".png"
}

// Target is a resolved encoding request.
type Target struct {
	MIMEType   string `json:"mime_type"`
	Extension  string `json:"extension"`
	Quality    int    `json:"quality,omitempty"`
	UseQuality bool   `json:"use_quality"`
}

// Resolve picks the output encoding. The first matching rule wins:
// transparency forces PNG, then png, webp and original are honoured, and
// anything else becomes JPEG. Quality is only carried for lossy targets.
func Resolve(s Settings, transparent bool, native Native) Target {
	switch {
	case transparent:
		return Target{MIMEType: MIMEPNG, Extension: ".png"}
	case s.Format == FormatPNG:
		return Target{MIMEType: MIMEPNG, Extension: ".png"}
	case s.Format == FormatWebP:
		return Target{MIMEType: MIMEWebP, Extension: ".webp", Quality: s.Quality, UseQuality: true}
	case s.Format == FormatOriginal:
		return resolveNative(native, s.Quality)
	default:
		return Target{MIMEType: MIMEJPEG, Extension: ".jpg", Quality: s.Quality, UseQuality: true}
	}
}

func resolveNative(native Native, quality int) Target {
	if !Encodable(native.MIMEType) {
		// No encoder for svg, avif and friends.
		return Target{MIMEType: MIMEPNG, Extension: ".png"}
	}
	t := Target{MIMEType: native.MIMEType, Extension: native.Extension}
	if supportsQuality(native.MIMEType) {
		t.Quality = quality
		t.UseQuality = true
	}
	return t
}

// Encodable reports whether Encode can produce mimeType.
func Encodable(mimeType string) bool {
	switch mimeType {
	case MIMEJPEG, MIMEPNG, MIMEWebP, MIMEGIF, MIMETIFF, MIMEBMP:
		return true
	}
	return false
}

func supportsQuality(mimeType string) bool {
	return mimeType == MIMEJPEG || mimeType == MIMEWebP
}
