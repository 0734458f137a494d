// Package sniff guesses and classifies MIME types for stored pastes.
package sniff

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const plainText = "text/plain; charset=utf-8"

// ByExtension looks the file extension up in the static extension table.
// Returns false for unknown or absent extensions.
func ByExtension(fileName string) (string, bool) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "", false
	}
	mt := mime.TypeByExtension(ext)
	if mt == "" {
		return "", false
	}
	return mt, true
}

// ByContent sniffs the magic numbers of data. It always returns a
// concrete type; unrecognized content comes back as a generic type per
// the sniffing library's convention.
func ByContent(data []byte) string {
	return mimetype.Detect(data).String()
}

// Resolve tries extension-based classification first and falls back to
// content sniffing.
func Resolve(fileName string, data []byte) string {
	if fileName != "" {
		if mt, ok := ByExtension(fileName); ok {
			return mt
		}
	}
	return ByContent(data)
}

// IsText reports whether a MIME type should be rendered as escaped HTML
// rather than streamed raw. Shell scripts are text in every way that
// matters here.
func IsText(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = mimeType
	}
	if mt == "application/x-sh" {
		return true
	}
	return strings.HasPrefix(mt, "text/")
}

// ToContentType validates a stored MIME string for use as a Content-Type
// header, defaulting to plain text when it does not parse.
func ToContentType(mimeType string) string {
	if _, _, err := mime.ParseMediaType(mimeType); err != nil {
		return plainText
	}
	return mimeType
}
