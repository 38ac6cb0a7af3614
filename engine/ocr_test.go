package engine

import (
	"path/filepath"
	"testing"
)

func TestSortPages(t *testing.T) {
	// Ghostscript pads page counters to three digits, so page 1000
	// sorts before 999 lexically.
	pages := []string{
		filepath.Join("d", "page-1000.png"),
		filepath.Join("d", "page-002.png"),
		filepath.Join("d", "page-999.png"),
		filepath.Join("d", "page-001.png"),
	}
	sortPages(pages)
	want := []string{"page-001.png", "page-002.png", "page-999.png", "page-1000.png"}
	for i, w := range want {
		if filepath.Base(pages[i]) != w {
			t.Fatalf("pages[%d] = %s, want %s", i, pages[i], w)
		}
	}
}
