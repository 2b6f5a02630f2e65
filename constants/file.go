package constants

import "strings"

// FileFormat is the detected category of an uploaded document.
type FileFormat string

const (
	FormatPDF   FileFormat = "pdf"
	FormatImage FileFormat = "image"
	FormatText  FileFormat = "text"
)

// MaxUploadBytes is the hard ceiling for a single uploaded document.
const MaxUploadBytes = 10 << 20 // 10 MiB

// AllowedMIMETypes maps accepted MIME types to their format category.
var AllowedMIMETypes = map[string]FileFormat{
	"application/pdf": FormatPDF,
	"image/jpeg":      FormatImage,
	"image/jpg":       FormatImage,
	"image/png":       FormatImage,
	"text/plain":      FormatText,
}

// extFormats maps normalized file extensions to their format category.
var extFormats = map[string]FileFormat{
	"pdf":  FormatPDF,
	"jpg":  FormatImage,
	"jpeg": FormatImage,
	"png":  FormatImage,
	"txt":  FormatText,
	"text": FormatText,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the format for a file extension, or "" if unsupported.
func MapExtToFormat(ext string) FileFormat {
	return extFormats[NormalizeExt(ext)]
}

// MapMIMEToFormat returns the format for a declared MIME type, or "" if the
// MIME type is not in the accepted set. Parameters after ";" are ignored.
func MapMIMEToFormat(mimeType string) FileFormat {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return AllowedMIMETypes[mt]
}
