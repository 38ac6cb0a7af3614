// CLAUDE:SUMMARY Untrusted raw configuration payload: every field a pointer so absence survives JSON decoding.
package pipeline

// RawConfig is the untrusted configuration payload as a caller supplies it.
// Every field is a pointer so "absent" stays distinguishable from a zero
// value; absent fields take their subsystem default during resolution.
// Unknown keys at any level are ignored by the decoder.
//
// A RawConfig lives for exactly one call: decoded, resolved, discarded.
type RawConfig struct {
	MaxLength *int       `json:"max_length,omitempty"`
	XML       *bool      `json:"xml,omitempty"`
	Encoding  *string    `json:"encoding,omitempty"`
	PDF       *RawPDF    `json:"pdf,omitempty"`
	Office    *RawOffice `json:"office,omitempty"`
	OCR       *RawOCR    `json:"ocr,omitempty"`
}

// RawPDF carries the optional pdf group.
type RawPDF struct {
	OCRStrategy                   *string `json:"ocr_strategy,omitempty"`
	ExtractAnnotationText         *bool   `json:"extract_annotation_text,omitempty"`
	ExtractInlineImages           *bool   `json:"extract_inline_images,omitempty"`
	ExtractUniqueInlineImagesOnly *bool   `json:"extract_unique_inline_images_only,omitempty"`
	ExtractMarkedContent          *bool   `json:"extract_marked_content,omitempty"`
}

// RawOffice carries the optional office group.
type RawOffice struct {
	IncludeShapeBasedContent      *bool `json:"include_shape_based_content,omitempty"`
	IncludeSlideNotes             *bool `json:"include_slide_notes,omitempty"`
	IncludeSlideMasterContent     *bool `json:"include_slide_master_content,omitempty"`
	ConcatenatePhoneticRuns       *bool `json:"concatenate_phonetic_runs,omitempty"`
	IncludeHeadersAndFooters      *bool `json:"include_headers_and_footers,omitempty"`
	IncludeDeletedContent         *bool `json:"include_deleted_content,omitempty"`
	IncludeMoveFromContent        *bool `json:"include_move_from_content,omitempty"`
	IncludeMissingRows            *bool `json:"include_missing_rows,omitempty"`
	ExtractMacros                 *bool `json:"extract_macros,omitempty"`
	ExtractAllAlternativesFromMSG *bool `json:"extract_all_alternatives_from_msg,omitempty"`
}

// RawOCR carries the optional ocr group.
type RawOCR struct {
	Language                 *string `json:"language,omitempty"`
	TimeoutSeconds           *int    `json:"timeout_seconds,omitempty"`
	Density                  *int    `json:"density,omitempty"`
	Depth                    *int    `json:"depth,omitempty"`
	ApplyRotation            *bool   `json:"apply_rotation,omitempty"`
	EnableImagePreprocessing *bool   `json:"enable_image_preprocessing,omitempty"`
}
