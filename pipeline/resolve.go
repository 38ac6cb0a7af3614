// CLAUDE:SUMMARY Resolution: JSON payload → RawConfig → fully defaulted Config; charset strict, OCR strategy lenient.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Resolve turns an optional JSON payload into a complete Config.
//
// An empty (or all-whitespace) payload yields Defaults(). Malformed JSON or
// a wrongly typed field aborts with ErrBadPayload before any subsystem is
// considered; an unrecognized encoding aborts with UnknownEnumError. There
// is no partially resolved state: the caller gets a complete Config or an
// error.
func Resolve(payload string) (Config, error) {
	if strings.TrimSpace(payload) == "" {
		return Defaults(), nil
	}
	var raw RawConfig
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return ResolveRaw(raw)
}

// ResolveRaw resolves an already decoded payload. Entry points that build
// the raw form directly (the legacy xml-flag call, CLI flags) delegate here
// so defaulting and validation live in one place.
func ResolveRaw(raw RawConfig) (Config, error) {
	cfg := Defaults()

	if raw.XML != nil && *raw.XML {
		cfg.OutputFormat = OutputXML
	}
	if raw.MaxLength != nil {
		if *raw.MaxLength < 0 {
			return Config{}, fmt.Errorf("%w: max_length %d is negative", ErrBadPayload, *raw.MaxLength)
		}
		cfg.MaxLength = *raw.MaxLength
	}
	if raw.Encoding != nil {
		cs, err := ResolveCharset(*raw.Encoding)
		if err != nil {
			return Config{}, err
		}
		cfg.Charset = cs
	}

	cfg.PDF = buildPDF(raw.PDF, cfg.PDF)
	cfg.Office = buildOffice(raw.Office, cfg.Office)
	cfg.OCR = buildOCR(raw.OCR, cfg.OCR)
	return cfg, nil
}

// buildPDF fills the pdf subsystem config from its raw group. Absent group
// or absent fields keep the defaults passed in.
func buildPDF(raw *RawPDF, def PDFConfig) PDFConfig {
	cfg := def
	if raw == nil {
		return cfg
	}
	if raw.OCRStrategy != nil {
		cfg.OCRStrategy = ResolveOCRStrategy(*raw.OCRStrategy)
	}
	if raw.ExtractAnnotationText != nil {
		cfg.ExtractAnnotationText = *raw.ExtractAnnotationText
	}
	if raw.ExtractInlineImages != nil {
		cfg.ExtractInlineImages = *raw.ExtractInlineImages
	}
	if raw.ExtractUniqueInlineImagesOnly != nil {
		cfg.ExtractUniqueInlineImagesOnly = *raw.ExtractUniqueInlineImagesOnly
	}
	if raw.ExtractMarkedContent != nil {
		cfg.ExtractMarkedContent = *raw.ExtractMarkedContent
	}
	return cfg
}

func buildOffice(raw *RawOffice, def OfficeConfig) OfficeConfig {
	cfg := def
	if raw == nil {
		return cfg
	}
	if raw.IncludeShapeBasedContent != nil {
		cfg.IncludeShapeBasedContent = *raw.IncludeShapeBasedContent
	}
	if raw.IncludeSlideNotes != nil {
		cfg.IncludeSlideNotes = *raw.IncludeSlideNotes
	}
	if raw.IncludeSlideMasterContent != nil {
		cfg.IncludeSlideMasterContent = *raw.IncludeSlideMasterContent
	}
	if raw.ConcatenatePhoneticRuns != nil {
		cfg.ConcatenatePhoneticRuns = *raw.ConcatenatePhoneticRuns
	}
	if raw.IncludeHeadersAndFooters != nil {
		cfg.IncludeHeadersAndFooters = *raw.IncludeHeadersAndFooters
	}
	if raw.IncludeDeletedContent != nil {
		cfg.IncludeDeletedContent = *raw.IncludeDeletedContent
	}
	if raw.IncludeMoveFromContent != nil {
		cfg.IncludeMoveFromContent = *raw.IncludeMoveFromContent
	}
	if raw.IncludeMissingRows != nil {
		cfg.IncludeMissingRows = *raw.IncludeMissingRows
	}
	if raw.ExtractMacros != nil {
		cfg.ExtractMacros = *raw.ExtractMacros
	}
	if raw.ExtractAllAlternativesFromMSG != nil {
		cfg.ExtractAllAlternativesFromMSG = *raw.ExtractAllAlternativesFromMSG
	}
	return cfg
}

func buildOCR(raw *RawOCR, def OCRConfig) OCRConfig {
	cfg := def
	if raw == nil {
		return cfg
	}
	if raw.Language != nil {
		cfg.Language = *raw.Language
	}
	if raw.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *raw.TimeoutSeconds
	}
	if raw.Density != nil {
		cfg.Density = *raw.Density
	}
	if raw.Depth != nil {
		cfg.Depth = *raw.Depth
	}
	if raw.ApplyRotation != nil {
		cfg.ApplyRotation = *raw.ApplyRotation
	}
	if raw.EnableImagePreprocessing != nil {
		cfg.EnableImagePreprocessing = *raw.EnableImagePreprocessing
	}
	return cfg
}

// normalizeEnum lowercases and strips the separators callers mix freely
// ("UTF-8", "utf_8", "utf8" all normalize to "utf8").
func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, s)
}

// ResolveCharset maps spelling variants of a character-set name to its
// canonical value. Unrecognized names fail the whole resolution with
// UnknownEnumError.
func ResolveCharset(name string) (Charset, error) {
	switch normalizeEnum(name) {
	case "utf8":
		return CharsetUTF8, nil
	case "utf16be":
		return CharsetUTF16BE, nil
	case "usascii", "ascii":
		return CharsetASCII, nil
	}
	return "", &UnknownEnumError{
		Field: "encoding",
		Value: name,
		Supported: []string{
			string(CharsetUTF8), string(CharsetUTF16BE), string(CharsetASCII),
		},
	}
}

// ResolveOCRStrategy maps spelling variants of a strategy name to its
// canonical value. Unrecognized names resolve to OCRAuto; unlike the
// charset path this never fails.
func ResolveOCRStrategy(name string) OCRStrategy {
	switch normalizeEnum(name) {
	case "noocr":
		return OCRNo
	case "auto":
		return OCRAuto
	case "ocronly":
		return OCROnly
	case "ocrandtextextraction", "ocrandtext":
		return OCRAndText
	}
	return OCRAuto
}
