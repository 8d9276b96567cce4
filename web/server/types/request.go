package types

import "net/http"

// Request is the view of an inbound HTTP request handed to capability-typed
// handlers. Body, Params and Query hold decoded values whose keys have
// already been converted to the application casing convention. HTTP and
// Writer expose the raw transport objects for handlers that complete the
// response themselves.
type Request struct {
	HTTP   *http.Request
	Writer http.ResponseWriter

	// Body is the decoded JSON request body, or nil if the request had none.
	Body any
	// Params holds the route parameters extracted from the mount pattern.
	Params map[string]any
	// Query holds the URL query values; single-valued parameters appear as
	// string, multi-valued ones as []string.
	Query map[string]any
}
