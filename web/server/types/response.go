package types

import "net/http"

// Response is the value a capability-typed handler returns to have the
// adapter write the HTTP response. A nil Response means the handler either
// passed control on or completed the response through the raw writer.
type Response struct {
	StatusCode int
	Body       any
	Header     http.Header
}

// NewResponse returns a response with the given status code and body.
func NewResponse(statusCode int, body any) *Response {
	return &Response{StatusCode: statusCode, Body: body}
}

// WithHeader adds a header to the response and returns it for chaining.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Add(key, value)
	return r
}
