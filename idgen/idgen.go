// Package idgen issues the identifiers the extraction service hands out.
// Generation is a function value, so the ID strategy is a wiring decision
// rather than something hard-coded in handlers.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 v7 UUIDs. v7 embeds a
// millisecond timestamp, so rows keyed by these IDs sort by creation.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed type tag to every ID from gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Jobs generates extraction job IDs ("job_" + UUIDv7).
var Jobs = Prefixed("job_", UUIDv7())
