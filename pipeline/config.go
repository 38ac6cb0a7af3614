// CLAUDE:SUMMARY Resolved extraction configuration: output format, charset, and PDF/Office/OCR subsystem options with engine defaults.
// Package pipeline resolves loosely-typed extraction settings into a fully
// populated configuration.
//
// Callers supply an optional JSON payload in which every field is optional,
// groups may be missing entirely, and enum values accept spelling variants.
// Resolve turns that payload into a Config where every field holds a concrete
// value, defaulting anything absent. The extraction engine never sees
// optionality.
//
// Usage:
//
//	cfg, err := pipeline.Resolve(`{"xml": true, "ocr": {"language": "fra"}}`)
//	if err != nil {
//		return err
//	}
//	content, meta, err := eng.ExtractFile(ctx, path, cfg)
package pipeline

// OutputFormat selects how extracted content is rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text" // plain text
	OutputXML  OutputFormat = "xml"  // XHTML with metadata in the head
)

// Charset identifies the byte encoding of returned content.
type Charset string

const (
	CharsetUTF8    Charset = "UTF-8"
	CharsetUTF16BE Charset = "UTF-16BE"
	CharsetASCII   Charset = "US-ASCII"
)

// OCRStrategy governs how the PDF extractor combines the embedded text layer
// with OCR of page images.
type OCRStrategy string

const (
	OCRNo      OCRStrategy = "no_ocr"
	OCRAuto    OCRStrategy = "auto"
	OCROnly    OCRStrategy = "ocr_only"
	OCRAndText OCRStrategy = "ocr_and_text_extraction"
)

// Config is the fully resolved configuration for one extraction call.
// Every field holds a concrete value after resolution; Defaults describes
// the payload-free call.
type Config struct {
	OutputFormat OutputFormat

	// MaxLength bounds the returned content in runes. 0 means unbounded.
	MaxLength int

	Charset Charset

	PDF    PDFConfig
	Office OfficeConfig
	OCR    OCRConfig
}

// PDFConfig holds the pdf subsystem options.
type PDFConfig struct {
	OCRStrategy                   OCRStrategy
	ExtractAnnotationText         bool
	ExtractInlineImages           bool
	ExtractUniqueInlineImagesOnly bool
	ExtractMarkedContent          bool
}

// OfficeConfig holds the office subsystem options. Each flag is independent;
// the defaults mirror the behavior of common office parsers (visible content
// in, tracked changes and macros out).
type OfficeConfig struct {
	IncludeShapeBasedContent      bool
	IncludeSlideNotes             bool
	IncludeSlideMasterContent     bool
	ConcatenatePhoneticRuns       bool
	IncludeHeadersAndFooters      bool
	IncludeDeletedContent         bool
	IncludeMoveFromContent        bool
	IncludeMissingRows            bool
	ExtractMacros                 bool
	ExtractAllAlternativesFromMSG bool
}

// OCRConfig holds the ocr subsystem options, forwarded to the OCR runner.
type OCRConfig struct {
	Language                 string // tesseract language code(s), e.g. "eng" or "eng+fra"
	TimeoutSeconds           int    // wall-clock bound per OCR invocation
	Density                  int    // rasterization DPI
	Depth                    int    // rasterization bits per pixel
	ApplyRotation            bool
	EnableImagePreprocessing bool
}

// Defaults returns the configuration used when no payload is supplied.
func Defaults() Config {
	return Config{
		OutputFormat: OutputText,
		MaxLength:    0,
		Charset:      CharsetUTF8,
		PDF: PDFConfig{
			OCRStrategy:           OCRAuto,
			ExtractAnnotationText: true,
		},
		Office: OfficeConfig{
			IncludeShapeBasedContent:  true,
			IncludeSlideNotes:         true,
			IncludeSlideMasterContent: true,
			ConcatenatePhoneticRuns:   true,
			IncludeHeadersAndFooters:  true,
		},
		OCR: OCRConfig{
			Language:       "eng",
			TimeoutSeconds: 120,
			Density:        300,
			Depth:          4,
		},
	}
}
