package openaichat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// toMessageError converts any error into the Claude-shaped error envelope.
// Errors that already carry an envelope pass through unchanged; everything
// else (network failures, timeouts, cancelled contexts) is wrapped as a
// generic api_error so the client always receives a well-formed body.
func toMessageError(err error) *types.ErrorResponse {
	if err == nil {
		return nil
	}

	var envelope *types.ErrorResponse
	if errors.As(err, &envelope) {
		return envelope
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewErrorResponse(types.ErrorTypeAPI, "upstream request timed out")
	}

	return types.NewErrorResponse(types.ErrorTypeAPI, err.Error())
}

// toUpstreamStatusError maps a non-200 upstream response to a Claude-shaped
// error. The upstream's own error message is preserved when the body carries
// the standard error envelope; the error type follows the HTTP status so the
// original status class (rate limiting in particular) survives the
// translation.
func toUpstreamStatusError(statusCode int, body []byte) *types.ErrorResponse {
	message := http.StatusText(statusCode)

	var upstream chatError
	if err := json.Unmarshal(body, &upstream); err == nil && upstream.Error.Message != "" {
		message = upstream.Error.Message
	}

	return types.NewErrorResponse(errorTypeForStatus(statusCode), message)
}

// errorTypeForStatus translates an upstream HTTP status into the Claude error
// taxonomy.
func errorTypeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return types.ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return types.ErrorTypeAuthentication
	case http.StatusForbidden:
		return types.ErrorTypePermission
	case http.StatusNotFound:
		return types.ErrorTypeNotFound
	case http.StatusTooManyRequests:
		return types.ErrorTypeRateLimit
	case http.StatusServiceUnavailable:
		return types.ErrorTypeOverloaded
	default:
		return types.ErrorTypeAPI
	}
}
