package core

import "fmt"

// ErrorCode identifies a protocol failure reported to a client.
type ErrorCode string

const (
	// ErrorNotLoggedIn: the handshake's session ID did not resolve.
	ErrorNotLoggedIn ErrorCode = "NOT_LOGGED_IN"
	// ErrorDocumentUnopened: the session never opened the document, the
	// connection has no binding, or the document has no live state.
	ErrorDocumentUnopened ErrorCode = "DOCUMENT_UNOPENED"
	// ErrorInsufficientPermissions: an edit from a read-only binding.
	ErrorInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	// ErrorInvalidData: the payload failed schema validation before it
	// reached handler logic.
	ErrorInvalidData ErrorCode = "INVALID_DATA"
	// ErrorServer is the catch-all for failures outside the structured
	// error path.
	ErrorServer ErrorCode = "SERVER_ERROR"
)

// ProtocolError is the explicit failure result of a protocol step.
// Handlers return it by early return; the dispatch boundary converts
// it to a SERVER_ERROR frame sent only to the originating connection.
type ProtocolError struct {
	Code ErrorCode `json:"code"`
	Data any       `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %s: %v", e.Code, e.Data)
}

// NewProtocolError builds a ProtocolError with detail data.
func NewProtocolError(code ErrorCode, data any) *ProtocolError {
	return &ProtocolError{Code: code, Data: data}
}

// AsProtocolError returns err as a *ProtocolError, wrapping anything
// else under the SERVER_ERROR catch-all code.
func AsProtocolError(err error) *ProtocolError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProtocolError); ok {
		return pe
	}
	return &ProtocolError{Code: ErrorServer, Data: err.Error()}
}
