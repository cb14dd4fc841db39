package core

// input.go turns an uploaded file into import text.
//
// Files are read whole: the importer works on complete text, not on a
// stream. A UTF-8 BOM written by spreadsheet tools is dropped and invalid
// UTF-8 bytes become '?' so that names survive a round trip to JSON.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultMaxFileSize caps import files when no limit is configured.
const DefaultMaxFileSize int64 = 10 << 20

// ReadImportText reads r fully, up to maxBytes. A larger input fails with
// ErrFileTooLarge. A non-positive maxBytes uses DefaultMaxFileSize.
func ReadImportText(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	data, err := io.ReadAll(io.LimitReader(br, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read import file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}

	return sanitizeUTF8(data), nil
}

// sanitizeUTF8 replaces every invalid byte with '?'.
func sanitizeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b.WriteByte('?')
		} else {
			b.Write(data[:size])
		}
		data = data[size:]
	}
	return b.String()
}
