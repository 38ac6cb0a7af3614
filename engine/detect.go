// CLAUDE:SUMMARY Format detection: magic bytes first, zip container probing, then extension and Content-Type hints.
package engine

import (
	"archive/zip"
	"bytes"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies a document type.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDocx     Format = "docx"
	FormatPptx     Format = "pptx"
	FormatXlsx     Format = "xlsx"
	FormatODT      Format = "odt"
	FormatODP      Format = "odp"
	FormatODS      Format = "ods"
	FormatMail     Format = "eml"
	FormatHTML     Format = "html"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
	FormatPNG      Format = "png"
	FormatJPEG     Format = "jpeg"
	FormatTIFF     Format = "tiff"
	FormatUnknown  Format = ""
)

// MIME returns the canonical media type for the format.
func (f Format) MIME() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPptx:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case FormatXlsx:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatODT:
		return "application/vnd.oasis.opendocument.text"
	case FormatODP:
		return "application/vnd.oasis.opendocument.presentation"
	case FormatODS:
		return "application/vnd.oasis.opendocument.spreadsheet"
	case FormatMail:
		return "message/rfc822"
	case FormatHTML:
		return "text/html"
	case FormatText:
		return "text/plain"
	case FormatMarkdown:
		return "text/markdown"
	case FormatCSV:
		return "text/csv"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatTIFF:
		return "image/tiff"
	}
	return "application/octet-stream"
}

// DetectFormat determines the document format from a name hint, an optional
// Content-Type hint, and the content itself. Magic bytes win over the
// extension: a renamed container must not be parsed as what its name claims.
func DetectFormat(name, contentType string, data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return detectZip(data)
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")):
		return FormatTIFF
	}

	if f := formatForExt(strings.ToLower(filepath.Ext(name))); f != FormatUnknown {
		return f
	}
	if f := formatForContentType(contentType); f != FormatUnknown {
		return f
	}
	if looksLikeHTML(data) {
		return FormatHTML
	}
	if looksLikeText(data) {
		return FormatText
	}
	return FormatUnknown
}

func formatForExt(ext string) Format {
	switch ext {
	case ".pdf":
		return FormatPDF
	case ".docx", ".docm":
		return FormatDocx
	case ".pptx", ".pptm":
		return FormatPptx
	case ".xlsx", ".xlsm":
		return FormatXlsx
	case ".odt":
		return FormatODT
	case ".odp":
		return FormatODP
	case ".ods":
		return FormatODS
	case ".eml":
		return FormatMail
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	case ".txt", ".text", ".log":
		return FormatText
	case ".md", ".markdown":
		return FormatMarkdown
	case ".csv", ".tsv":
		return FormatCSV
	case ".png":
		return FormatPNG
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".tif", ".tiff":
		return FormatTIFF
	}
	return FormatUnknown
}

func formatForContentType(ct string) Format {
	if ct == "" {
		return FormatUnknown
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return FormatUnknown
	}
	switch mt {
	case "application/pdf":
		return FormatPDF
	case "text/html", "application/xhtml+xml":
		return FormatHTML
	case "text/markdown":
		return FormatMarkdown
	case "text/csv":
		return FormatCSV
	case "text/plain":
		return FormatText
	case "message/rfc822":
		return FormatMail
	case "image/png":
		return FormatPNG
	case "image/jpeg":
		return FormatJPEG
	case "image/tiff":
		return FormatTIFF
	}
	return FormatUnknown
}

// detectZip disambiguates zip containers by their well-known entries.
func detectZip(data []byte) Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return FormatUnknown
	}
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			return FormatDocx
		case "ppt/presentation.xml":
			return FormatPptx
		case "xl/workbook.xml":
			return FormatXlsx
		case "mimetype":
			return detectODF(f)
		}
	}
	return FormatUnknown
}

func detectODF(f *zip.File) Format {
	rc, err := f.Open()
	if err != nil {
		return FormatUnknown
	}
	defer rc.Close()
	buf, err := io.ReadAll(io.LimitReader(rc, 128))
	if err != nil {
		return FormatUnknown
	}
	switch strings.TrimSpace(string(buf)) {
	case "application/vnd.oasis.opendocument.text":
		return FormatODT
	case "application/vnd.oasis.opendocument.presentation":
		return FormatODP
	case "application/vnd.oasis.opendocument.spreadsheet":
		return FormatODS
	}
	return FormatUnknown
}

func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	low := bytes.ToLower(head)
	return bytes.Contains(low, []byte("<!doctype html")) ||
		bytes.Contains(low, []byte("<html"))
}

// looksLikeText accepts content with no NUL bytes in its head as plain text.
func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	return !bytes.ContainsRune(head, 0)
}
