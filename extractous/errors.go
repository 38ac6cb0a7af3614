package extractous

// Pathway identifies the input route of one extraction call.
type Pathway string

const (
	PathwayFile  Pathway = "file"
	PathwayBytes Pathway = "bytes"
	PathwayURL   Pathway = "url"
)

// prefix returns the historical failure prefix for the pathway. The exact
// strings are load-bearing: callers match on them.
func (p Pathway) prefix() string {
	switch p {
	case PathwayBytes:
		return "Extraction from bytes failed"
	case PathwayURL:
		return "Extraction from URL failed"
	}
	return "Extraction failed"
}

// ExtractError wraps an engine failure with its pathway. The message keeps
// the engine's own text verbatim after the pathway prefix.
type ExtractError struct {
	Pathway Pathway
	Err     error
}

func (e *ExtractError) Error() string {
	return e.Pathway.prefix() + ": " + e.Err.Error()
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
