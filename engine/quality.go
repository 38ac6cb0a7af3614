// CLAUDE:SUMMARY Text-layer quality signals deciding when the auto OCR strategy falls through to rasterized OCR.
package engine

import "unicode"

// textQuality captures signals about an extracted PDF text layer.
type textQuality struct {
	pages          int
	chars          int
	printableRatio float64
	hasImages      bool
}

// needsOCR reports whether the text layer is too thin or too garbled to
// stand on its own. Thresholds: under 50 chars/page alongside images means
// a scanned document; printable ratio under 0.85 means a broken encoding.
func (q textQuality) needsOCR() bool {
	perPage := float64(q.chars)
	if q.pages > 0 {
		perPage = float64(q.chars) / float64(q.pages)
	}
	return (perPage < 50 && q.hasImages) || q.printableRatio < 0.85
}

// printableRatio returns the share of printable runes in text. Private-use
// runes, the replacement char, and non-whitespace controls count as garbage.
func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if garbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func garbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}
