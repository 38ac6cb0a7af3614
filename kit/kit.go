// Package kit holds the transport-agnostic plumbing shared by the extraction
// service surfaces: the Endpoint abstraction, middleware chaining, typed
// context keys, and the MCP tool transport.
//
// An Endpoint is one operation exposed over any transport. HTTP handlers and
// MCP tools both decode into a typed request, call the Endpoint, and encode
// the response — the business call itself never sees the transport.
package kit

import "context"

// Endpoint is a single transport-agnostic operation.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left to right: the first argument is the
// outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
