// Package decoder provides the default upload decoder and the supported
// mimetype allowlist. Real format parsers (pdf, office documents) live
// behind the same interface in dedicated services; this decoder handles the
// textual types and skips everything else.
package decoder

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"corpora/backend/internal/ingest"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// supported is the fixed set of declared types the backend accepts for
// virtual-file-marked uploads.
var supported = []string{
	"text/plain",
	"text/markdown",
	"text/csv",
	"text/html",
	"text/x-rst",
	"text/org",
	"application/json",
	"application/xml",
	"application/yaml",
	"message/rfc822",
}

// SupportedMimetypes returns the allowlist of declared types.
func SupportedMimetypes() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// Text decodes uploads whose declared type is textual. Anything it cannot
// decode yields an empty string, which the pipeline treats as a skip.
type Text struct{}

// NewText returns the default textual decoder.
func NewText() Text {
	return Text{}
}

// Decode returns the source content as UTF-8 text, or "" when the source is
// binary, not valid UTF-8, or of a non-textual declared type.
func (Text) Decode(src ingest.Source) (string, error) {
	if !textual(src.Type) {
		return "", nil
	}
	content := bytes.TrimPrefix(src.Content, utf8BOM)
	if !utf8.Valid(content) {
		return "", nil
	}
	if bytes.ContainsRune(content, 0) {
		return "", nil
	}
	return string(content), nil
}

func textual(mimetype string) bool {
	if strings.HasPrefix(mimetype, "text/") {
		return true
	}
	switch mimetype {
	case "", "application/json", "application/xml", "application/yaml", "message/rfc822":
		return true
	}
	return false
}
