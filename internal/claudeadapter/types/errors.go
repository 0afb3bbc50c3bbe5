package types

// Claude error taxonomy values emitted by this bridge.
const (
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeAuthentication = "authentication_error"
	ErrorTypePermission     = "permission_error"
	ErrorTypeNotFound       = "not_found_error"
	ErrorTypeRateLimit      = "rate_limit_error"
	ErrorTypeAPI            = "api_error"
	ErrorTypeOverloaded     = "overloaded_error"
)

// MessageError is the inner error object of the Claude error envelope.
type MessageError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error implements the error interface for MessageError, returning the error message.
func (e *MessageError) Error() string {
	return e.Message
}

// ErrorResponse is the Claude-shaped error envelope:
// {"type":"error","error":{"type":...,"message":...}}.
type ErrorResponse struct {
	Type string        `json:"type"`
	Err  *MessageError `json:"error"`
}

// NewErrorResponse builds a Claude-shaped error envelope.
func NewErrorResponse(errType, message string) *ErrorResponse {
	return &ErrorResponse{
		Type: "error",
		Err:  &MessageError{Type: errType, Message: message},
	}
}

// Error implements the error interface for ErrorResponse, returning the underlying
// error message. This allows ErrorResponse to be used directly in error returns.
func (e *ErrorResponse) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Message
}
