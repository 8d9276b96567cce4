package types

// Error is an error carrying the HTTP status code it should be answered
// with. The status code itself is never serialized; only the message
// crosses the wire.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

var _ error = (*Error)(nil)

// NewError returns an Error with the given status code and message.
func NewError(statusCode int, message string) *Error {
	return &Error{StatusCode: statusCode, Message: message}
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Message
}
