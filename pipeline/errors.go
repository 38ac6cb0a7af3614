package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadPayload is returned when the configuration payload is not
// well-formed JSON for the RawConfig shape. The wrapped message carries the
// decoder's diagnostic.
var ErrBadPayload = errors.New("pipeline: malformed config payload")

// UnknownEnumError reports a strictly validated field holding a value
// outside its accepted alias set. It rejects the whole resolution.
type UnknownEnumError struct {
	Field     string   // payload key, e.g. "encoding"
	Value     string   // the offending input, verbatim
	Supported []string // canonical names
}

func (e *UnknownEnumError) Error() string {
	return fmt.Sprintf("pipeline: unrecognized %s %q (supported: %s)",
		e.Field, e.Value, strings.Join(e.Supported, ", "))
}
