// CLAUDE:SUMMARY Extraction façade: payload resolution, three-pathway dispatch, and result packaging.
// Package extractous is the public face of the extraction service: it
// resolves an optional JSON configuration payload, dispatches to the engine
// entry point matching the input pathway (file path, byte buffer, URL), and
// packages the engine's output into a two-string Result.
//
//	ex := extractous.New(engine.New(engine.Config{}))
//	res, err := ex.ExtractFile(ctx, "report.pdf", `{"xml": true}`)
package extractous

import (
	"context"
	"log/slog"

	"github.com/Valian/extractous-go/engine"
	"github.com/Valian/extractous-go/pipeline"
)

// Result is the uniform response of every extraction call: the extracted
// content and the engine metadata rendered as opaque debug text.
type Result struct {
	Content  string `json:"content"`
	Metadata string `json:"metadata"`
}

// Extractor dispatches extraction calls against an engine. It is immutable
// after New and safe for concurrent use; every call is self-contained.
type Extractor struct {
	engine engine.Engine
	logger *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor over eng.
func New(eng engine.Engine, opts ...Option) *Extractor {
	e := &Extractor{engine: eng, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile extracts a local document. The payload is an optional JSON
// configuration document; empty means all defaults.
func (e *Extractor) ExtractFile(ctx context.Context, path, payload string) (*Result, error) {
	cfg, err := pipeline.Resolve(payload)
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, PathwayFile, cfg, fileInput(path))
}

// ExtractBytes extracts a document supplied as raw bytes.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, payload string) (*Result, error) {
	cfg, err := pipeline.Resolve(payload)
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, PathwayBytes, cfg, bytesInput(data))
}

// ExtractURL fetches and extracts a remote document.
func (e *Extractor) ExtractURL(ctx context.Context, rawURL, payload string) (*Result, error) {
	cfg, err := pipeline.Resolve(payload)
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, PathwayURL, cfg, urlInput(rawURL))
}

// Extract is the legacy two-argument entry point: a file path and an XML
// flag. It synthesizes the minimal raw form and goes through the same
// resolver as the payload entry points.
func (e *Extractor) Extract(ctx context.Context, path string, asXML bool) (*Result, error) {
	raw := pipeline.RawConfig{}
	if asXML {
		raw.XML = &asXML
	}
	cfg, err := pipeline.ResolveRaw(raw)
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, PathwayFile, cfg, fileInput(path))
}

// input selects the engine entry point for one pathway.
type input func(ctx context.Context, eng engine.Engine, cfg pipeline.Config) (string, engine.Metadata, error)

func fileInput(path string) input {
	return func(ctx context.Context, eng engine.Engine, cfg pipeline.Config) (string, engine.Metadata, error) {
		return eng.ExtractFile(ctx, path, cfg)
	}
}

func bytesInput(data []byte) input {
	return func(ctx context.Context, eng engine.Engine, cfg pipeline.Config) (string, engine.Metadata, error) {
		return eng.ExtractBytes(ctx, data, cfg)
	}
}

func urlInput(rawURL string) input {
	return func(ctx context.Context, eng engine.Engine, cfg pipeline.Config) (string, engine.Metadata, error) {
		return eng.ExtractURL(ctx, rawURL, cfg)
	}
}

// dispatch invokes the engine and packages its output. Engine failures come
// back as *ExtractError with the pathway prefix; nothing is retried.
func (e *Extractor) dispatch(ctx context.Context, pw Pathway, cfg pipeline.Config, in input) (*Result, error) {
	content, md, err := in(ctx, e.engine, cfg)
	if err != nil {
		e.logger.Debug("extraction failed", "pathway", string(pw), "error", err)
		return nil, &ExtractError{Pathway: pw, Err: err}
	}
	return &Result{Content: content, Metadata: md.String()}, nil
}
