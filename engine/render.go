// CLAUDE:SUMMARY Output rendering: XHTML wrapping, rune truncation, and charset transcoding of extracted content.
package engine

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Valian/extractous-go/pipeline"
)

// renderXHTML wraps extracted text in a minimal XHTML document with the
// metadata as <meta> tags, one per key/value pair, in sorted key order.
func renderXHTML(text string, md Metadata) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteByte('\n')
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">`)
	sb.WriteString("\n<head>\n")

	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range md[k] {
			fmt.Fprintf(&sb, "<meta name=%q content=%q/>\n",
				html.EscapeString(k), html.EscapeString(v))
		}
	}
	if title := md.Get("dc:title"); title != "" {
		fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title))
	}
	sb.WriteString("</head>\n<body>\n")

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(para))
		sb.WriteString("</p>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// truncateRunes bounds s to max runes. max <= 0 means unbounded.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// encodeCharset re-encodes content according to the resolved charset. The
// result stays a Go string; its bytes are in the requested encoding. UTF-8
// passes through, US-ASCII folds non-ASCII runes to '?'.
func encodeCharset(s string, cs pipeline.Charset) (string, error) {
	switch cs {
	case pipeline.CharsetUTF8, "":
		return s, nil
	case pipeline.CharsetUTF16BE:
		enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
		out, _, err := transform.String(enc, s)
		if err != nil {
			return "", fmt.Errorf("encode UTF-16BE: %w", err)
		}
		return out, nil
	case pipeline.CharsetASCII:
		var sb strings.Builder
		sb.Grow(len(s))
		for _, r := range s {
			if r < 0x80 {
				sb.WriteRune(r)
			} else {
				sb.WriteByte('?')
			}
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("unsupported charset %q", cs)
}

// decodeUTF16BE decodes big-endian UTF-16 bytes (no BOM expected) to UTF-8.
func decodeUTF16BE(b []byte) (string, error) {
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
