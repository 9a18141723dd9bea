package loader

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/docqa/pkg/document"
)

const byteOrderMark = "\ufeff"

// LoadText reads r as a single UTF-8 text document.
func LoadText(name string, r io.Reader) ([]document.Document, error) {
	text, err := readUTF8(name, r)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s is empty", document.ErrLoad, name)
	}

	return []document.Document{{Source: name, Text: text}}, nil
}

// readUTF8 reads all of r, rejects invalid UTF-8 and drops a leading byte
// order mark.
func readUTF8(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", document.ErrLoad, name, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", document.ErrLoad, name)
	}

	return strings.TrimPrefix(string(data), byteOrderMark), nil
}

// normalizeText repairs extracted text that did not come from a UTF-8 file.
// Invalid sequences become U+FFFD and NUL bytes are dropped.
func normalizeText(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	return strings.ReplaceAll(s, "\x00", "")
}
