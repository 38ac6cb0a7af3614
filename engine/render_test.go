package engine

import (
	"strings"
	"testing"

	"github.com/Valian/extractous-go/pipeline"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 0, "hello"},
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"}, // rune count, not byte count
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestEncodeCharset(t *testing.T) {
	if out, err := encodeCharset("héllo", pipeline.CharsetUTF8); err != nil || out != "héllo" {
		t.Errorf("UTF-8 pass-through: %q, %v", out, err)
	}

	out, err := encodeCharset("héllo", pipeline.CharsetASCII)
	if err != nil {
		t.Fatal(err)
	}
	if out != "h?llo" {
		t.Errorf("ASCII fold = %q, want h?llo", out)
	}

	enc, err := encodeCharset("hi", pipeline.CharsetUTF16BE)
	if err != nil {
		t.Fatal(err)
	}
	if enc != "\x00h\x00i" {
		t.Errorf("UTF-16BE = %q", enc)
	}
	back, err := decodeUTF16BE([]byte(enc))
	if err != nil {
		t.Fatal(err)
	}
	if back != "hi" {
		t.Errorf("round trip = %q", back)
	}
}

func TestRenderXHTML(t *testing.T) {
	md := Metadata{}
	md.Set("dc:title", "My Doc")
	md.Set("dc:creator", "Alice")

	out := renderXHTML("First paragraph.\n\nSecond & last.", md)

	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML declaration: %q", out[:40])
	}
	if !strings.Contains(out, `<meta name="dc:creator" content="Alice"/>`) {
		t.Errorf("missing creator meta:\n%s", out)
	}
	if !strings.Contains(out, "<title>My Doc</title>") {
		t.Errorf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "<p>First paragraph.</p>") {
		t.Errorf("missing first paragraph:\n%s", out)
	}
	if !strings.Contains(out, "<p>Second &amp; last.</p>") {
		t.Errorf("second paragraph not escaped:\n%s", out)
	}

	// Meta tags come in sorted key order.
	creator := strings.Index(out, "dc:creator")
	title := strings.Index(out, "dc:title")
	if creator == -1 || title == -1 || creator > title {
		t.Errorf("meta tags not sorted:\n%s", out)
	}
}
