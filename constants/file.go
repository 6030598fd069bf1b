package constants

import "strings"

// DocType is the classification assigned to an incoming document.
type DocType string

const (
	Image       DocType = "IMAGE"
	TextPDF     DocType = "TEXT_PDF"
	ImagePDF    DocType = "IMAGE_PDF"
	Unsupported DocType = "UNSUPPORTED"
)

// DeclaredType is what the file extension claims the document is.
type DeclaredType string

const (
	DeclaredImage   DeclaredType = "IMAGE"
	DeclaredPDF     DeclaredType = "PDF"
	DeclaredUnknown DeclaredType = "UNKNOWN"
)

// ImageExtensions holds the raster formats the OCR path accepts.
var ImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
	"gif":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// PageBreak separates pages in the aggregated text.
const PageBreak = "\n\f\n"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether ext (with or without the dot) is a supported raster format.
func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToDeclared maps an extension to the declared document type.
func MapExtToDeclared(ext string) DeclaredType {
	ext = NormalizeExt(ext)
	switch {
	case ext == "pdf":
		return DeclaredPDF
	case IsImageExt(ext):
		return DeclaredImage
	default:
		return DeclaredUnknown
	}
}

// AllowedExt reports whether the pipeline accepts files with this extension.
func AllowedExt(ext string) bool {
	return MapExtToDeclared(ext) != DeclaredUnknown
}
