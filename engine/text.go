// CLAUDE:SUMMARY Plain text, markdown, and CSV extraction with input charset detection.
package engine

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// extractText reads textual content, decoding the input charset (BOM, then
// statistical detection) to UTF-8. Binary content sneaks in through renamed
// files; NUL bytes after decoding reject it.
func (n *Native) extractText(data []byte, md Metadata) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), md.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("charset detection: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	if bytes.ContainsRune(decoded, 0) {
		return "", fmt.Errorf("content is not text (NUL bytes present)")
	}
	text := string(decoded)
	md.Set("Content-Length", fmt.Sprintf("%d", len(data)))
	return text, nil
}
