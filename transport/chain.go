// Package transport provides the client-side HTTP interceptor pipeline:
// bearer-token attachment with refresh-and-retry, response envelope
// unwrapping, and the caching/invalidation stage.
//
// Stages compose as http.RoundTripper wrappers. The canonical order, from
// outermost to innermost, is caching, envelope, authorizer, base: the cache
// then stores unwrapped payloads, and cached replays never re-enter the
// authorizer.
package transport

import "net/http"

// Stage wraps an http.RoundTripper with one pipeline concern.
type Stage func(http.RoundTripper) http.RoundTripper

// Chain composes stages around base. Stages are listed outermost first, so
// Chain(base, a, b) produces a(b(base)).
func Chain(base http.RoundTripper, stages ...Stage) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(stages) - 1; i >= 0; i-- {
		rt = stages[i](rt)
	}
	return rt
}

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
