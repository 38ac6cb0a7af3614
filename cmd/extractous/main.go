// CLAUDE:SUMMARY Cobra CLI for one-shot extraction — positional file/URL/stdin, JSON config flags, text or metadata output.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Valian/extractous-go/engine"
	"github.com/Valian/extractous-go/extractous"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagConfig       string
	flagXML          bool
	flagMaxLength    int
	flagEncoding     string
	flagOCRStrategy  string
	flagOutput       string
	flagShowMetadata bool
	flagTimeout      time.Duration
	flagVerbose      bool
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extractous <file|url|->",
		Short: "Extract text and metadata from documents",
		Long: `extractous extracts plain text (or XHTML) and metadata from documents:
PDF, Office (docx/xlsx/pptx, odt/ods/odp), HTML, e-mail, images (via OCR)
and plain text. The input is a file path, an http(s) URL, or "-" for stdin.`,
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "JSON configuration payload, or @file to read it from a file")
	cmd.Flags().BoolVar(&flagXML, "xml", false, "emit XHTML instead of plain text")
	cmd.Flags().IntVar(&flagMaxLength, "max-length", 0, "truncate extracted text to N characters (0 = unbounded)")
	cmd.Flags().StringVar(&flagEncoding, "encoding", "", "output character set (UTF-8, UTF-16BE, US-ASCII)")
	cmd.Flags().StringVar(&flagOCRStrategy, "ocr-strategy", "", "PDF OCR strategy (auto, no_ocr, ocr_only, ocr_and_text_extraction)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write extracted text to a file instead of stdout")
	cmd.Flags().BoolVar(&flagShowMetadata, "show-metadata", false, "print document metadata to stderr")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "overall deadline for the extraction (0 = none)")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	payload, err := buildPayload()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}

	ex := extractous.New(engine.New(engine.Config{Logger: logger}), extractous.WithLogger(logger))

	var res *extractous.Result
	input := args[0]
	switch {
	case input == "-":
		data, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return fmt.Errorf("reading stdin: %w", rerr)
		}
		res, err = ex.ExtractBytes(ctx, data, payload)
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		res, err = ex.ExtractURL(ctx, input, payload)
	default:
		res, err = ex.ExtractFile(ctx, input, payload)
	}
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if flagOutput != "" {
		f, cerr := os.Create(flagOutput)
		if cerr != nil {
			return fmt.Errorf("creating output file: %w", cerr)
		}
		defer f.Close()
		out = f
	}
	if _, err := io.WriteString(out, res.Content); err != nil {
		return err
	}
	if !strings.HasSuffix(res.Content, "\n") && flagOutput == "" {
		fmt.Fprintln(out)
	}

	if flagShowMetadata {
		fmt.Fprintln(os.Stderr, res.Metadata)
	}
	return nil
}

// buildPayload merges the --config payload with the individual flags. Flags
// win over the payload so that `-c @base.json --xml` behaves as expected.
func buildPayload() (string, error) {
	raw := map[string]json.RawMessage{}
	if flagConfig != "" {
		text := flagConfig
		if strings.HasPrefix(text, "@") {
			data, err := os.ReadFile(text[1:])
			if err != nil {
				return "", fmt.Errorf("reading config file: %w", err)
			}
			text = string(data)
		}
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return "", fmt.Errorf("parsing config payload: %w", err)
		}
	}

	setJSON := func(key string, v any) {
		b, _ := json.Marshal(v)
		raw[key] = b
	}
	if flagXML {
		setJSON("xml", true)
	}
	if flagMaxLength != 0 {
		setJSON("max_length", flagMaxLength)
	}
	if flagEncoding != "" {
		setJSON("encoding", flagEncoding)
	}
	if flagOCRStrategy != "" {
		pdf := map[string]json.RawMessage{}
		if prev, ok := raw["pdf"]; ok {
			if err := json.Unmarshal(prev, &pdf); err != nil {
				return "", fmt.Errorf("parsing config payload: %w", err)
			}
		}
		b, _ := json.Marshal(flagOCRStrategy)
		pdf["ocr_strategy"] = b
		setJSON("pdf", pdf)
	}

	if len(raw) == 0 {
		return "", nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
