// CLAUDE:SUMMARY PDF extraction with pdfcpu: content-stream text, annotations, marked content, inline-image OCR, strategy switch.
package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Valian/extractous-go/pipeline"
)

// extractPDF runs the configured PDF pipeline: text layer, annotations,
// marked content, inline images, and the OCR strategy switch.
func (n *Native) extractPDF(ctx context.Context, data []byte, cfg pipeline.Config, md Metadata) (string, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	md.Set("pdf:PageCount", strconv.Itoa(pctx.PageCount))
	collectInfoMetadata(pctx, md)

	hasImages := hasImageStreams(pctx)
	strategy := cfg.PDF.OCRStrategy

	var layer string
	var quality textQuality
	if strategy != pipeline.OCROnly {
		layer, quality = pdfTextLayer(pctx, cfg.PDF.ExtractMarkedContent)
		quality.hasImages = hasImages
		if cfg.PDF.ExtractAnnotationText {
			if ann := annotationText(pctx); ann != "" {
				layer = joinBlocks(layer, ann)
			}
		}
	}

	var ocr string
	switch strategy {
	case pipeline.OCRNo:
		// Text layer only.
	case pipeline.OCROnly, pipeline.OCRAndText:
		ocr, err = n.ocrPDFPages(ctx, data, cfg.OCR)
		if err != nil {
			return "", fmt.Errorf("ocr: %w", err)
		}
	case pipeline.OCRAuto:
		if quality.needsOCR() {
			text, oerr := n.ocrPDFPages(ctx, data, cfg.OCR)
			if oerr != nil {
				n.logger.Warn("auto OCR skipped", "error", oerr)
			} else {
				ocr = text
			}
		}
	}

	var inline string
	if cfg.PDF.ExtractInlineImages {
		inline = n.ocrInlineImages(ctx, pctx, cfg, md)
	}

	out := joinBlocks(joinBlocks(layer, ocr), inline)
	if strings.TrimSpace(out) == "" && strategy == pipeline.OCRNo && hasImages {
		return "", fmt.Errorf("no text layer and OCR is disabled")
	}
	return out, nil
}

func joinBlocks(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n\n" + b
}

// pdfTextLayer extracts text from every page's content stream and reports
// quality signals for the auto OCR decision.
func pdfTextLayer(pctx *model.Context, keepMarked bool) (string, textQuality) {
	var sb strings.Builder
	chars := 0
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil {
			continue
		}
		stream, err := io.ReadAll(r)
		if err != nil || len(stream) == 0 {
			continue
		}
		pageText := textFromContentStream(stream, keepMarked)
		if pageText == "" {
			continue
		}
		chars += len([]rune(pageText))
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(pageText)
	}
	text := sb.String()
	return text, textQuality{
		pages:          pctx.PageCount,
		chars:          chars,
		printableRatio: printableRatio(text),
	}
}

// textFromContentStream walks content-stream operators and assembles shown
// text. Unless keepMarked is set, blocks tagged /Artifact (page furniture:
// running headers, footers, page numbers) are dropped.
func textFromContentStream(stream []byte, keepMarked bool) string {
	var sb strings.Builder
	artifactDepth := 0
	markedDepth := 0

	for _, line := range bytes.Split(stream, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if bytes.HasSuffix(line, []byte("BDC")) || bytes.HasSuffix(line, []byte("BMC")) {
			markedDepth++
			if artifactDepth > 0 || bytes.HasPrefix(line, []byte("/Artifact")) {
				artifactDepth++
			}
			continue
		}
		if bytes.HasSuffix(line, []byte("EMC")) {
			if markedDepth > 0 {
				markedDepth--
			}
			if artifactDepth > 0 {
				artifactDepth--
			}
			continue
		}
		if artifactDepth > 0 && !keepMarked {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, lit := range pdfStringLiterals(line) {
				sb.WriteString(lit)
			}
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte("\"")):
			lits := pdfStringLiterals(line)
			if len(lits) > 0 {
				sb.WriteByte('\n')
				for _, lit := range lits {
					sb.WriteString(lit)
				}
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return normalizeSpace(sb.String())
}

// pdfStringLiterals pulls decoded "(...)" literals out of one operator line.
func pdfStringLiterals(line []byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				if s := decodePDFString(line[start:i]); s != "" {
					out = append(out, s)
				}
			}
			if depth < 0 {
				depth = 0
			}
		}
	}
	return out
}

// decodePDFString resolves backslash escapes, octal codes, and UTF-16BE
// (BOM-prefixed) text strings.
func decodePDFString(raw []byte) string {
	var buf bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			buf.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			buf.WriteByte('\n')
		case 'r':
			buf.WriteByte('\r')
		case 't':
			buf.WriteByte('\t')
		case 'b':
			buf.WriteByte('\b')
		case 'f':
			buf.WriteByte('\f')
		case '\\', '(', ')':
			buf.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				buf.WriteByte(byte(val))
			} else {
				buf.WriteByte(raw[i])
			}
		}
	}
	return decodePDFTextBytes(buf.Bytes())
}

// decodePDFTextBytes maps a PDF text string to UTF-8. BOM-prefixed strings
// are UTF-16BE; everything else passes through.
func decodePDFTextBytes(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		if s, err := decodeUTF16BE(b[2:]); err == nil {
			return s
		}
	}
	return string(b)
}

func normalizeSpace(text string) string {
	var sb strings.Builder
	space := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteByte('\n')
			space = true
		case r == ' ' || r == '\t' || r == '\r':
			if !space && sb.Len() > 0 {
				sb.WriteByte(' ')
				space = true
			}
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(sb.String())
}

// hasImageStreams checks for image XObjects, first via the optimizer's page
// index, then by a raw xref scan.
func hasImageStreams(pctx *model.Context) bool {
	if pctx.Optimize != nil {
		for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range pctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// annotationText collects /Contents strings from annotation dictionaries in
// object-number order, so output is deterministic.
func annotationText(pctx *model.Context) string {
	objNrs := make([]int, 0, len(pctx.Table))
	for nr := range pctx.Table {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	var parts []string
	for _, nr := range objNrs {
		entry := pctx.Table[nr]
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		d, ok := entry.Object.(types.Dict)
		if !ok {
			continue
		}
		if !isAnnotationDict(d) {
			continue
		}
		obj, _ := d.Find("Contents")
		if s := pdfObjectString(obj); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// isAnnotationDict recognizes annotation dictionaries: a Subtype name, a
// Rect, and a Contents string. The Type key is optional in the wild.
func isAnnotationDict(d types.Dict) bool {
	if t, found := d.Find("Type"); found {
		if name, ok := t.(types.Name); ok && name != "Annot" {
			return false
		}
	}
	sub, found := d.Find("Subtype")
	if !found {
		return false
	}
	if _, ok := sub.(types.Name); !ok {
		return false
	}
	if _, found := d.Find("Rect"); !found {
		return false
	}
	_, found = d.Find("Contents")
	return found
}

func pdfObjectString(obj types.Object) string {
	switch v := obj.(type) {
	case types.StringLiteral:
		return strings.TrimSpace(decodePDFString([]byte(string(v))))
	case types.HexLiteral:
		h := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, string(v))
		if len(h)%2 == 1 {
			h += "0"
		}
		b, err := hex.DecodeString(h)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(decodePDFTextBytes(b))
	}
	return ""
}

// collectInfoMetadata walks the xref for the document information dictionary
// and copies its descriptive fields. Detection is heuristic: an Info dict has
// no Type key and carries producer/date fields; sorting keeps it stable.
func collectInfoMetadata(pctx *model.Context, md Metadata) {
	objNrs := make([]int, 0, len(pctx.Table))
	for nr := range pctx.Table {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	for _, nr := range objNrs {
		entry := pctx.Table[nr]
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		d, ok := entry.Object.(types.Dict)
		if !ok {
			continue
		}
		if _, found := d.Find("Type"); found {
			continue
		}
		if _, found := d.Find("Parent"); found {
			continue
		}
		if _, found := d.Find("Kids"); found {
			continue
		}
		hasMarker := false
		for _, key := range []string{"Producer", "CreationDate", "ModDate", "Author"} {
			if _, found := d.Find(key); found {
				hasMarker = true
				break
			}
		}
		if !hasMarker {
			continue
		}
		for key, mdKey := range map[string]string{
			"Title":    "dc:title",
			"Author":   "dc:creator",
			"Subject":  "dc:subject",
			"Keywords": "pdf:Keywords",
			"Producer": "pdf:Producer",
			"Creator":  "pdf:Creator",
		} {
			if obj, found := d.Find(key); found {
				if s := pdfObjectString(obj); s != "" && md.Get(mdKey) == "" {
					md.Set(mdKey, s)
				}
			}
		}
		return
	}
}

// ocrInlineImages OCRs inline (BI…ID…EI) image segments from all content
// streams. With the unique-only flag, identical images are OCR'd once.
func (n *Native) ocrInlineImages(ctx context.Context, pctx *model.Context, cfg pipeline.Config, md Metadata) string {
	images := inlineImageSegments(pctx)
	md.Set("pdf:InlineImages", strconv.Itoa(len(images)))
	if len(images) == 0 || cfg.PDF.OCRStrategy == pipeline.OCRNo {
		return ""
	}

	seen := map[string]bool{}
	var parts []string
	for _, img := range images {
		if cfg.PDF.ExtractUniqueInlineImagesOnly {
			sum := sha256.Sum256(img)
			key := hex.EncodeToString(sum[:])
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		// Only raster payloads tesseract can read directly.
		f := DetectFormat("", "", img)
		if f != FormatPNG && f != FormatJPEG && f != FormatTIFF {
			continue
		}
		text, err := n.ocrImageBytes(ctx, img, string(f), cfg.OCR)
		if err != nil {
			n.logger.Debug("inline image OCR failed", "error", err)
			continue
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// inlineImageSegments returns the raw byte payloads between ID and EI
// markers of every page content stream.
func inlineImageSegments(pctx *model.Context) [][]byte {
	var segments [][]byte
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil {
			continue
		}
		stream, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		rest := stream
		for {
			id := bytes.Index(rest, []byte("\nID"))
			if id < 0 {
				id = bytes.Index(rest, []byte(" ID"))
			}
			if id < 0 {
				break
			}
			payload := rest[id+3:]
			if len(payload) > 0 && (payload[0] == '\n' || payload[0] == ' ' || payload[0] == '\r') {
				payload = payload[1:]
			}
			end := bytes.Index(payload, []byte("EI"))
			if end < 0 {
				break
			}
			seg := bytes.TrimRight(payload[:end], " \r\n")
			if len(seg) > 0 {
				segments = append(segments, seg)
			}
			rest = payload[end+2:]
		}
	}
	return segments
}
