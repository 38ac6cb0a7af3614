// CLAUDE:SUMMARY Native extraction engine — format dispatch for pdf, office, mail, html, text, and image inputs.
// Package engine extracts text and metadata from documents.
//
// Native implements the three-entry-point contract (file, bytes, URL) behind
// the Engine interface. Inputs are normalized to a byte buffer, the format is
// detected from the name hint and content sniffing, and a per-format extractor
// produces plain text plus metadata. Output rendering (XHTML, truncation,
// charset encoding) is applied uniformly according to the resolved
// pipeline.Config.
//
// Supported formats:
//   - .pdf            — pdfcpu (content streams, annotations, OCR strategies)
//   - .docx/.pptx/.xlsx and .odt/.odp/.ods — archive/zip + encoding/xml
//   - .eml            — net/mail + mime/multipart
//   - .html/.htm      — sanitized and converted via html-to-markdown
//   - .txt/.md/.csv   — direct read with charset detection
//   - .png/.jpg/.tiff — OCR via external tesseract
//
// OCR shells out to tesseract and ghostscript; both are probed lazily and
// only required when a resolved configuration actually demands OCR.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Valian/extractous-go/guard"
	"github.com/Valian/extractous-go/pipeline"
)

// Engine is the extraction contract the façade dispatches against. Each
// entry point takes a fully resolved configuration and returns extracted
// content plus metadata, or a descriptive error.
type Engine interface {
	ExtractFile(ctx context.Context, path string, cfg pipeline.Config) (string, Metadata, error)
	ExtractBytes(ctx context.Context, data []byte, cfg pipeline.Config) (string, Metadata, error)
	ExtractURL(ctx context.Context, rawURL string, cfg pipeline.Config) (string, Metadata, error)
}

// Metadata holds extraction metadata as multi-valued keys. Callers treat its
// rendered form as opaque debug text; no schema is guaranteed.
type Metadata map[string][]string

// Set replaces the values for key.
func (m Metadata) Set(key string, values ...string) {
	m[key] = values
}

// Add appends a value to key.
func (m Metadata) Add(key, value string) {
	m[key] = append(m[key], value)
}

// Get returns the first value for key, or "".
func (m Metadata) Get(key string) string {
	if vs := m[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// String renders the metadata in a stable, sorted, debug-style form:
//
//	{"Content-Type": ["text/plain"], "resourceName": ["a.txt"]}
//
// The rendering is deterministic so callers may diff or log it.
func (m Metadata) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(k))
		sb.WriteString(": [")
		for j, v := range m[k] {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(v))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('}')
	return sb.String()
}

// Config configures a Native engine. The zero value is usable.
type Config struct {
	// MaxFileSize caps local file inputs (default 100 MB).
	MaxFileSize int64

	// MaxFetchSize caps URL downloads (default 32 MB).
	MaxFetchSize int64

	// TesseractPath and GhostscriptPath name the OCR binaries
	// (defaults "tesseract" and "gs", resolved via PATH).
	TesseractPath   string
	GhostscriptPath string

	// HTTPClient serves the URL pathway (default: 30s timeout client).
	HTTPClient *http.Client

	// AllowPrivateHosts disables the private/loopback address rejection on
	// the URL pathway, for deployments that extract from internal services.
	AllowPrivateHosts bool

	// UserAgent sent on URL fetches.
	UserAgent string

	// Logger for debug/warn messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.MaxFetchSize <= 0 {
		c.MaxFetchSize = 32 * 1024 * 1024
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.GhostscriptPath == "" {
		c.GhostscriptPath = "gs"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
		if !c.AllowPrivateHosts {
			// Re-check resolved addresses at dial time, not just in
			// CheckURL: the two lookups are separate DNS queries.
			c.HTTPClient.Transport = guard.SafeTransport()
		}
	}
	if c.UserAgent == "" {
		c.UserAgent = "extractous-go/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Native is the in-process extraction engine. It is immutable after New and
// safe for concurrent use; every call is self-contained.
type Native struct {
	cfg    Config
	logger *slog.Logger
	conv   *converter.Converter
	policy *bluemonday.Policy
}

var _ Engine = (*Native)(nil)

// New creates a Native engine.
func New(cfg Config) *Native {
	cfg.defaults()
	return &Native{
		cfg:    cfg,
		logger: cfg.Logger,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// ExtractFile reads a local document and extracts it.
func (n *Native) ExtractFile(ctx context.Context, path string, cfg pipeline.Config) (string, Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > n.cfg.MaxFileSize {
		return "", nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), n.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return n.extract(ctx, data, filepath.Base(path), cfg)
}

// ExtractBytes extracts a document supplied as raw bytes. The format is
// sniffed from the content.
func (n *Native) ExtractBytes(ctx context.Context, data []byte, cfg pipeline.Config) (string, Metadata, error) {
	return n.extract(ctx, data, "", cfg)
}

// ExtractURL fetches a remote document and extracts it. The fetch is
// guard-checked (scheme, private addresses) and size-bounded.
func (n *Native) ExtractURL(ctx context.Context, rawURL string, cfg pipeline.Config) (string, Metadata, error) {
	data, name, ctype, err := n.fetch(ctx, rawURL)
	if err != nil {
		return "", nil, err
	}
	content, md, err := n.extractHinted(ctx, data, name, ctype, cfg)
	if err != nil {
		return "", nil, err
	}
	md.Set("resourceURL", rawURL)
	return content, md, nil
}

// extract runs detection, the per-format extractor, and output rendering.
func (n *Native) extract(ctx context.Context, data []byte, name string, cfg pipeline.Config) (string, Metadata, error) {
	return n.extractHinted(ctx, data, name, "", cfg)
}

func (n *Native) extractHinted(ctx context.Context, data []byte, name, contentType string, cfg pipeline.Config) (string, Metadata, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	format := DetectFormat(name, contentType, data)
	if format == FormatUnknown {
		return "", nil, fmt.Errorf("unsupported document format (name %q, %d bytes)", name, len(data))
	}

	md := Metadata{}
	md.Set("Content-Type", format.MIME())
	if name != "" {
		md.Set("resourceName", name)
	}

	n.logger.Debug("extracting", "format", string(format), "bytes", len(data))

	var text string
	var err error
	switch format {
	case FormatPDF:
		text, err = n.extractPDF(ctx, data, cfg, md)
	case FormatDocx, FormatPptx, FormatXlsx:
		text, err = n.extractOOXML(ctx, data, format, cfg, md)
	case FormatODT, FormatODP, FormatODS:
		text, err = n.extractODF(ctx, data, cfg, md)
	case FormatMail:
		text, err = n.extractMail(ctx, data, cfg, md)
	case FormatHTML:
		text, err = n.extractHTML(ctx, data, md)
	case FormatText, FormatMarkdown, FormatCSV:
		text, err = n.extractText(data, md)
	case FormatPNG, FormatJPEG, FormatTIFF:
		text, err = n.ocrImage(ctx, data, format, cfg.OCR, md)
	default:
		return "", nil, fmt.Errorf("no extractor for format %q", format)
	}
	if err != nil {
		return "", nil, err
	}

	out := text
	if cfg.OutputFormat == pipeline.OutputXML {
		out = renderXHTML(text, md)
	}
	out = truncateRunes(out, cfg.MaxLength)
	out, err = encodeCharset(out, cfg.Charset)
	if err != nil {
		return "", nil, err
	}
	return out, md, nil
}

// fetch downloads a URL with guard checks and a bounded body read.
func (n *Native) fetch(ctx context.Context, rawURL string) (data []byte, name, contentType string, err error) {
	u, err := guard.CheckURL(rawURL)
	if err != nil {
		if !n.cfg.AllowPrivateHosts || !errors.Is(err, guard.ErrPrivateAddress) {
			return nil, "", "", err
		}
		if u, err = url.Parse(rawURL); err != nil {
			return nil, "", "", err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", "", err
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)

	resp, err := n.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", fmt.Errorf("fetch %s: status %d", u.String(), resp.StatusCode)
	}

	data, err = guard.ReadAllBounded(resp.Body, n.cfg.MaxFetchSize)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch %s: %w", u.String(), err)
	}

	name = filepath.Base(u.Path)
	if name == "/" || name == "." {
		name = ""
	}
	contentType = resp.Header.Get("Content-Type")
	return data, name, contentType, nil
}
