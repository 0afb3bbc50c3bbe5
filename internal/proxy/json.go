package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONClaudeError writes a Claude-shaped error envelope with the HTTP
// status code its error type implies.
func writeJSONClaudeError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	writeJSON(ctx, w, errResp, statusForErrorType(errResp.Err.Type))
}

// statusForErrorType maps the Claude error taxonomy to HTTP status codes.
func statusForErrorType(errType string) int {
	switch errType {
	case types.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypePermission:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case types.ErrorTypeOverloaded:
		return http.StatusServiceUnavailable
	case types.ErrorTypeAPI:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
