package docstore

import (
	"path/filepath"
	"sort"
	"strings"
)

// DocType is the coarse kind of a stored document.
type DocType string

const (
	TypePDF   DocType = "pdf"
	TypeImage DocType = "image"
)

var supportedTypes = map[string]DocType{
	".pdf":  TypePDF,
	".png":  TypeImage,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".webp": TypeImage,
}

// TypeOf returns the lower-cased extension and document type for filename.
// ok is false when the extension is not accepted.
func TypeOf(filename string) (ext string, typ DocType, ok bool) {
	ext = strings.ToLower(filepath.Ext(filename))
	typ, ok = supportedTypes[ext]
	return ext, typ, ok
}

// SupportedExtensions lists accepted extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedTypes))
	for ext := range supportedTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// FallbackFilename is the display name used when the registry has no entry.
func FallbackFilename(docID, ext string) string {
	prefix := docID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + ext
}

// URL is the public path a stored document is served from.
func URL(docID, ext string) string {
	return "/uploads/" + docID + ext
}
