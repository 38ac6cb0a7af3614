// CLAUDE:SUMMARY Office extraction: docx/pptx/xlsx and odt/odp/ods via archive/zip + encoding/xml, honoring every office flag.
package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/Valian/extractous-go/pipeline"
)

// extractOOXML handles the Office Open XML containers (docx, pptx, xlsx).
func (n *Native) extractOOXML(ctx context.Context, data []byte, format Format, cfg pipeline.Config, md Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open container: %w", err)
	}

	collectOOXMLProps(zr, md)

	var text string
	switch format {
	case FormatDocx:
		text, err = extractDocx(zr, cfg.Office)
	case FormatPptx:
		text, err = extractPptx(zr, cfg.Office)
	case FormatXlsx:
		text, err = extractXlsx(zr, cfg.Office)
	default:
		return "", fmt.Errorf("not an OOXML format: %q", format)
	}
	if err != nil {
		return "", err
	}

	if cfg.Office.ExtractMacros {
		if macros := extractVBAStrings(zr); macros != "" {
			text = joinBlocks(text, macros)
		}
	}
	return text, nil
}

// extractODF handles the OpenDocument containers (odt, odp, ods).
func (n *Native) extractODF(ctx context.Context, data []byte, cfg pipeline.Config, md Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open container: %w", err)
	}

	collectODFMeta(zr, md)

	content := zipEntry(zr, "content.xml")
	if content == nil {
		return "", fmt.Errorf("content.xml not found in archive")
	}
	rc, err := content.Open()
	if err != nil {
		return "", fmt.Errorf("open content.xml: %w", err)
	}
	defer rc.Close()

	text, err := odfContentText(rc, cfg.Office)
	if err != nil {
		return "", err
	}

	if cfg.Office.IncludeHeadersAndFooters {
		if hf := odfHeaderFooterText(zr); hf != "" {
			text = joinBlocks(hf, text)
		}
	}
	if cfg.Office.ExtractMacros {
		if macros := extractVBAStrings(zr); macros != "" {
			text = joinBlocks(text, macros)
		}
	}
	return text, nil
}

func zipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// sortedEntries returns the archive members matching dir/prefix*, sorted by
// the numeric suffix so slide10 follows slide9, not slide1.
func sortedEntries(zr *zip.Reader, dir, prefix string) []*zip.File {
	var files []*zip.File
	for _, f := range zr.File {
		if path.Dir(f.Name) == dir && strings.HasPrefix(path.Base(f.Name), prefix) &&
			strings.HasSuffix(f.Name, ".xml") {
			files = append(files, f)
		}
	}
	num := func(f *zip.File) int {
		base := strings.TrimSuffix(strings.TrimPrefix(path.Base(f.Name), prefix), ".xml")
		n, _ := strconv.Atoi(base)
		return n
	}
	sort.Slice(files, func(i, j int) bool { return num(files[i]) < num(files[j]) })
	return files
}

// --- docx ---

// extractDocx parses word/document.xml plus, when configured, the header and
// footer parts. Tracked-change and text-box content is gated by the office
// flags; ruby (phonetic) runs are appended to their base text only when
// ConcatenatePhoneticRuns is set.
func extractDocx(zr *zip.Reader, cfg pipeline.OfficeConfig) (string, error) {
	doc := zipEntry(zr, "word/document.xml")
	if doc == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	var parts []string
	if cfg.IncludeHeadersAndFooters {
		for _, f := range sortedEntries(zr, "word", "header") {
			if t, err := wordmlText(f, cfg); err == nil && t != "" {
				parts = append(parts, t)
			}
		}
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	body, err := wordmlTextReader(rc, cfg)
	rc.Close()
	if err != nil {
		return "", err
	}
	if body != "" {
		parts = append(parts, body)
	}

	if cfg.IncludeHeadersAndFooters {
		for _, f := range sortedEntries(zr, "word", "footer") {
			if t, err := wordmlText(f, cfg); err == nil && t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

func wordmlText(f *zip.File, cfg pipeline.OfficeConfig) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return wordmlTextReader(rc, cfg)
}

// wordmlTextReader streams WordprocessingML and assembles paragraph text.
// Depth counters track the container the current character data sits in:
// w:del (deletions), w:moveFrom (move sources), w:rt (phonetic guide text),
// and w:txbxContent (text boxes, the docx form of shape-based content).
func wordmlTextReader(r io.Reader, cfg pipeline.OfficeConfig) (string, error) {
	dec := xml.NewDecoder(r)

	var sb strings.Builder
	var para strings.Builder
	inText := false
	textElem := ""
	delDepth, moveFromDepth, rubyTextDepth, txbxDepth := 0, 0, 0, 0

	flush := func() {
		if t := strings.TrimSpace(para.String()); t != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(t)
		}
		para.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse wordml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "del":
				delDepth++
			case "moveFrom":
				moveFromDepth++
			case "rt":
				rubyTextDepth++
			case "txbxContent":
				txbxDepth++
			case "t", "delText", "delInstrText":
				inText = true
				textElem = t.Name.Local
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "del":
				if delDepth > 0 {
					delDepth--
				}
			case "moveFrom":
				if moveFromDepth > 0 {
					moveFromDepth--
				}
			case "rt":
				if rubyTextDepth > 0 {
					rubyTextDepth--
				}
			case "txbxContent":
				if txbxDepth > 0 {
					txbxDepth--
				}
			case "t", "delText", "delInstrText":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if textElem != "t" && !cfg.IncludeDeletedContent {
				continue // w:delText carries deleted runs
			}
			if delDepth > 0 && !cfg.IncludeDeletedContent {
				continue
			}
			if moveFromDepth > 0 && !cfg.IncludeMoveFromContent {
				continue
			}
			if rubyTextDepth > 0 && !cfg.ConcatenatePhoneticRuns {
				continue
			}
			if txbxDepth > 0 && !cfg.IncludeShapeBasedContent {
				continue
			}
			para.Write(t)
		}
	}
	flush()
	return sb.String(), nil
}

// --- pptx ---

// extractPptx walks slides in order, then notes and master/layout parts when
// the corresponding flags are set. Within a slide, text sits in shapes; a
// shape without a placeholder binding is "shape-based" content and is gated
// by IncludeShapeBasedContent.
func extractPptx(zr *zip.Reader, cfg pipeline.OfficeConfig) (string, error) {
	var parts []string
	add := func(t string, err error) {
		if err == nil && t != "" {
			parts = append(parts, t)
		}
	}

	slides := sortedEntries(zr, "ppt/slides", "slide")
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides found in archive")
	}
	for _, f := range slides {
		add(drawingmlText(f, cfg))
	}
	if cfg.IncludeSlideNotes {
		for _, f := range sortedEntries(zr, "ppt/notesSlides", "notesSlide") {
			add(drawingmlText(f, cfg))
		}
	}
	if cfg.IncludeSlideMasterContent {
		for _, f := range sortedEntries(zr, "ppt/slideMasters", "slideMaster") {
			add(drawingmlText(f, cfg))
		}
		for _, f := range sortedEntries(zr, "ppt/slideLayouts", "slideLayout") {
			add(drawingmlText(f, cfg))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// drawingmlText extracts text from one DrawingML part. Shape text (a:t) is
// buffered per shape; at the closing p:sp the buffer is kept if the shape is
// a placeholder (title, body, …) or plain shapes are configured in.
func drawingmlText(f *zip.File, cfg pipeline.OfficeConfig) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)

	var sb strings.Builder
	var shape strings.Builder
	spDepth := 0
	isPlaceholder := false
	inText := false

	flushShape := func() {
		t := strings.TrimSpace(shape.String())
		shape.Reset()
		if t == "" {
			return
		}
		if !isPlaceholder && !cfg.IncludeShapeBasedContent {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse drawingml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				spDepth++
				if spDepth == 1 {
					isPlaceholder = false
				}
			case "ph":
				if spDepth > 0 {
					isPlaceholder = true
				}
			case "t":
				inText = true
			case "br":
				shape.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "sp":
				if spDepth > 0 {
					spDepth--
					if spDepth == 0 {
						flushShape()
					}
				}
			case "t":
				inText = false
			case "p":
				if spDepth > 0 {
					shape.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				if spDepth > 0 {
					shape.Write(t)
				} else {
					sb.Write(t)
				}
			}
		}
	}
	flushShape()
	return strings.TrimSpace(sb.String()), nil
}

// --- xlsx ---

// extractXlsx reads the shared-string table, then renders every worksheet
// row as tab-separated cells. Gaps in row numbers become blank lines when
// IncludeMissingRows is set.
func extractXlsx(zr *zip.Reader, cfg pipeline.OfficeConfig) (string, error) {
	shared, err := xlsxSharedStrings(zr, cfg)
	if err != nil {
		return "", err
	}

	sheets := sortedEntries(zr, "xl/worksheets", "sheet")
	if len(sheets) == 0 {
		return "", fmt.Errorf("no worksheets found in archive")
	}

	var parts []string
	for _, f := range sheets {
		t, err := xlsxSheetText(f, shared, cfg)
		if err != nil {
			return "", err
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// xlsxSharedStrings parses xl/sharedStrings.xml. Phonetic runs (rPh) are
// appended to their entry only when ConcatenatePhoneticRuns is set.
func xlsxSharedStrings(zr *zip.Reader, cfg pipeline.OfficeConfig) ([]string, error) {
	f := zipEntry(zr, "xl/sharedStrings.xml")
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)

	var table []string
	var entry strings.Builder
	inText := false
	phoneticDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sharedStrings: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				entry.Reset()
			case "rPh":
				phoneticDepth++
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				table = append(table, entry.String())
			case "rPh":
				if phoneticDepth > 0 {
					phoneticDepth--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if !inText {
				continue
			}
			if phoneticDepth > 0 && !cfg.ConcatenatePhoneticRuns {
				continue
			}
			entry.Write(t)
		}
	}
	return table, nil
}

// xlsxSheetText renders one worksheet. Cell values resolve through the
// shared-string table for t="s" cells and pass through otherwise.
func xlsxSheetText(f *zip.File, shared []string, cfg pipeline.OfficeConfig) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)

	var sb strings.Builder
	var row []string
	var value strings.Builder
	cellType := ""
	inValue := false
	lastRowNum := 0
	rowNum := 0

	flushRow := func() {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t")
		row = row[:0]
		if line == "" {
			return
		}
		if cfg.IncludeMissingRows && lastRowNum > 0 {
			for gap := lastRowNum + 1; gap < rowNum; gap++ {
				sb.WriteByte('\n')
			}
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		lastRowNum = rowNum
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse worksheet: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				rowNum++
				for _, a := range t.Attr {
					if a.Name.Local == "r" {
						if r, err := strconv.Atoi(a.Value); err == nil {
							rowNum = r
						}
					}
				}
			case "c":
				cellType = ""
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v", "t":
				inValue = true
				value.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "row":
				flushRow()
			case "v", "t":
				inValue = false
				v := value.String()
				if cellType == "s" {
					if idx, err := strconv.Atoi(strings.TrimSpace(v)); err == nil &&
						idx >= 0 && idx < len(shared) {
						v = shared[idx]
					}
				}
				row = append(row, v)
			}
		case xml.CharData:
			if inValue {
				value.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// --- ODF ---

// odfContentText streams an OpenDocument content.xml. Presenter notes
// (presentation:notes) and tracked deletions (text:deletion inside
// text:tracked-changes) are gated; draw frames without a presentation class
// count as shape-based content.
func odfContentText(r io.Reader, cfg pipeline.OfficeConfig) (string, error) {
	dec := xml.NewDecoder(r)

	var sb strings.Builder
	var para strings.Builder
	inPara := false
	notesDepth := 0
	trackedDepth := 0
	frameDepth := 0
	framePlaceholder := false
	rubyTextDepth := 0
	lastRowRepeat := 0

	flush := func() {
		t := strings.TrimSpace(para.String())
		para.Reset()
		if t == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse content.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "notes":
				notesDepth++
			case "tracked-changes":
				trackedDepth++
			case "frame":
				frameDepth++
				framePlaceholder = false
				for _, a := range t.Attr {
					if a.Name.Local == "class" && a.Value != "" {
						framePlaceholder = a.Value != "graphic"
					}
				}
			case "ruby-text":
				rubyTextDepth++
			case "p", "h":
				inPara = true
			case "tab":
				para.WriteByte('\t')
			case "line-break":
				para.WriteByte('\n')
			case "s":
				para.WriteByte(' ')
			case "table-row":
				lastRowRepeat = 0
				for _, a := range t.Attr {
					if a.Name.Local == "number-rows-repeated" {
						if n, err := strconv.Atoi(a.Value); err == nil {
							lastRowRepeat = n
						}
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "notes":
				if notesDepth > 0 {
					notesDepth--
				}
			case "tracked-changes":
				if trackedDepth > 0 {
					trackedDepth--
				}
			case "frame":
				if frameDepth > 0 {
					frameDepth--
				}
			case "ruby-text":
				if rubyTextDepth > 0 {
					rubyTextDepth--
				}
			case "p", "h":
				inPara = false
				flush()
			case "table-row":
				// Repeated empty rows stand in for missing rows.
				if cfg.IncludeMissingRows && lastRowRepeat > 1 {
					for i := 1; i < lastRowRepeat; i++ {
						sb.WriteByte('\n')
					}
				}
			}
		case xml.CharData:
			if !inPara {
				continue
			}
			if notesDepth > 0 && !cfg.IncludeSlideNotes {
				continue
			}
			if trackedDepth > 0 && !cfg.IncludeDeletedContent {
				continue
			}
			if rubyTextDepth > 0 && !cfg.ConcatenatePhoneticRuns {
				continue
			}
			if frameDepth > 0 && !framePlaceholder && !cfg.IncludeShapeBasedContent {
				continue
			}
			para.Write(t)
		}
	}
	flush()
	return sb.String(), nil
}

// odfHeaderFooterText pulls style:header / style:footer text from styles.xml.
func odfHeaderFooterText(zr *zip.Reader) string {
	f := zipEntry(zr, "styles.xml")
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)

	var sb strings.Builder
	hfDepth := 0
	inPara := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "header", "footer":
				hfDepth++
			case "p":
				inPara = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "header", "footer":
				if hfDepth > 0 {
					hfDepth--
				}
			case "p":
				inPara = false
				if hfDepth > 0 && sb.Len() > 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.CharData:
			if hfDepth > 0 && inPara {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// --- metadata ---

type coreProps struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Subject  string `xml:"subject"`
	Keywords string `xml:"keywords"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

type appProps struct {
	Application string `xml:"Application"`
	Pages       int    `xml:"Pages"`
	Slides      int    `xml:"Slides"`
	Words       int    `xml:"Words"`
}

func collectOOXMLProps(zr *zip.Reader, md Metadata) {
	if f := zipEntry(zr, "docProps/core.xml"); f != nil {
		if rc, err := f.Open(); err == nil {
			var p coreProps
			if xml.NewDecoder(rc).Decode(&p) == nil {
				setIf(md, "dc:title", p.Title)
				setIf(md, "dc:creator", p.Creator)
				setIf(md, "dc:subject", p.Subject)
				setIf(md, "meta:keyword", p.Keywords)
				setIf(md, "dcterms:created", p.Created)
				setIf(md, "dcterms:modified", p.Modified)
			}
			rc.Close()
		}
	}
	if f := zipEntry(zr, "docProps/app.xml"); f != nil {
		if rc, err := f.Open(); err == nil {
			var p appProps
			if xml.NewDecoder(rc).Decode(&p) == nil {
				setIf(md, "extended-properties:Application", p.Application)
				if p.Pages > 0 {
					md.Set("xmpTPg:NPages", strconv.Itoa(p.Pages))
				}
				if p.Slides > 0 {
					md.Set("xmpTPg:NPages", strconv.Itoa(p.Slides))
				}
				if p.Words > 0 {
					md.Set("meta:word-count", strconv.Itoa(p.Words))
				}
			}
			rc.Close()
		}
	}
}

func collectODFMeta(zr *zip.Reader, md Metadata) {
	f := zipEntry(zr, "meta.xml")
	if f == nil {
		return
	}
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var key string
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "title":
				key = "dc:title"
			case "creator":
				key = "dc:creator"
			case "creation-date":
				key = "dcterms:created"
			case "generator":
				key = "extended-properties:Application"
			default:
				key = ""
			}
		case xml.EndElement:
			key = ""
		case xml.CharData:
			if key != "" {
				setIf(md, key, strings.TrimSpace(string(t)))
			}
		}
	}
}

func setIf(md Metadata, key, value string) {
	if value != "" && md.Get(key) == "" {
		md.Set(key, value)
	}
}

// --- macros ---

// extractVBAStrings scans embedded VBA project blobs for printable ASCII
// runs, the same signal `strings(1)` would give. Compressed module source is
// not decompressed; literals and identifiers surface regardless.
func extractVBAStrings(zr *zip.Reader) string {
	var blobs [][]byte
	for _, f := range zr.File {
		if path.Base(f.Name) != "vbaProject.bin" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		b, err := io.ReadAll(io.LimitReader(rc, 4<<20))
		rc.Close()
		if err == nil {
			blobs = append(blobs, b)
		}
	}
	if len(blobs) == 0 {
		return ""
	}

	const minRun = 5
	var sb strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= minRun {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.Write(run)
		}
		run = run[:0]
	}
	for _, blob := range blobs {
		for _, b := range blob {
			if b >= 0x20 && b < 0x7F && unicode.IsPrint(rune(b)) {
				run = append(run, b)
				continue
			}
			flush()
		}
		flush()
	}
	return sb.String()
}
