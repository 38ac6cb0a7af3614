// CLAUDE:SUMMARY OCR runners: tesseract over images, ghostscript page rasterization for PDF OCR strategies.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Valian/extractous-go/pipeline"
)

// langPattern bounds what reaches the tesseract -l flag. Codes like "eng",
// "deu", "eng+fra" pass; anything else is rejected before exec.
var langPattern = regexp.MustCompile(`^[a-z_+]+$`)

// ocrImage OCRs a standalone image input.
func (n *Native) ocrImage(ctx context.Context, data []byte, format Format, cfg pipeline.OCRConfig, md Metadata) (string, error) {
	text, err := n.ocrImageBytes(ctx, data, string(format), cfg)
	if err != nil {
		return "", err
	}
	md.Set("ocr:Applied", "true")
	return text, nil
}

// ocrImageBytes writes the image to a scratch file and runs tesseract on it.
func (n *Native) ocrImageBytes(ctx context.Context, data []byte, ext string, cfg pipeline.OCRConfig) (string, error) {
	dir, err := os.MkdirTemp("", "extractous-ocr-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "page."+ext)
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", err
	}
	return n.runTesseract(ctx, in, cfg)
}

// runTesseract executes the tesseract binary on one image file. The run is
// bounded by cfg.TimeoutSeconds on top of the caller's ctx.
func (n *Native) runTesseract(ctx context.Context, imagePath string, cfg pipeline.OCRConfig) (string, error) {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	if !langPattern.MatchString(lang) {
		return "", fmt.Errorf("invalid OCR language %q", lang)
	}

	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	args := []string{imagePath, "stdout", "-l", lang}
	if cfg.Density > 0 {
		args = append(args, "--dpi", strconv.Itoa(cfg.Density))
	}
	// PSM 1 adds orientation detection; 3 is plain auto segmentation.
	if cfg.ApplyRotation {
		args = append(args, "--psm", "1")
	} else {
		args = append(args, "--psm", "3")
	}

	cmd := exec.CommandContext(ctx, n.cfg.TesseractPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract timed out after %ds", cfg.TimeoutSeconds)
		}
		return "", fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// ocrPDFPages rasterizes every page with ghostscript and OCRs each raster in
// page order.
func (n *Native) ocrPDFPages(ctx context.Context, pdf []byte, cfg pipeline.OCRConfig) (string, error) {
	dir, err := os.MkdirTemp("", "extractous-gs-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return "", err
	}

	if err := n.runGhostscript(ctx, in, dir, cfg); err != nil {
		return "", err
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("ghostscript produced no pages")
	}
	sortPages(pages)

	var parts []string
	for _, page := range pages {
		text, err := n.runTesseract(ctx, page, cfg)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// sortPages orders raster files by page number. Ghostscript's %03d counter
// outgrows its zero padding past page 999, so lexical order is wrong there.
func sortPages(pages []string) {
	sort.Slice(pages, func(i, j int) bool {
		return pageNumber(pages[i]) < pageNumber(pages[j])
	})
}

func pageNumber(path string) int {
	base := filepath.Base(path)
	digits := strings.TrimSuffix(strings.TrimPrefix(base, "page-"), ".png")
	nr, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return nr
}

// runGhostscript rasterizes a PDF into page-%03d.png files in outDir. The
// device follows the configured bit depth; preprocessing turns on text and
// graphics anti-aliasing.
func (n *Native) runGhostscript(ctx context.Context, pdfPath, outDir string, cfg pipeline.OCRConfig) error {
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	device := "png16m"
	switch {
	case cfg.Depth <= 1:
		device = "pngmono"
	case cfg.Depth <= 8:
		device = "pnggray"
	}
	density := cfg.Density
	if density <= 0 {
		density = 300
	}

	args := []string{
		"-dNOPAUSE", "-dBATCH", "-dSAFER", "-dQUIET",
		"-sDEVICE=" + device,
		"-r" + strconv.Itoa(density),
	}
	if cfg.EnableImagePreprocessing {
		args = append(args, "-dTextAlphaBits=4", "-dGraphicsAlphaBits=4")
	}
	args = append(args, "-o", filepath.Join(outDir, "page-%03d.png"), pdfPath)

	cmd := exec.CommandContext(ctx, n.cfg.GhostscriptPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ghostscript timed out after %ds", cfg.TimeoutSeconds)
		}
		return fmt.Errorf("ghostscript: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
