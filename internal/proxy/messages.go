package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"localhost/claude-bridge/internal/claudeadapter"
	"localhost/claude-bridge/internal/claudeadapter/types"
)

// CreateMessageHandler handles Claude Messages API requests for a single
// provider, delegating translation and the upstream call to the adapter.
type CreateMessageHandler struct {
	Adapter   claudeadapter.CreateMessageAdapter
	Transport http.RoundTripper
}

// Compile-time check to ensure CreateMessageHandler implements http.Handler
var _ http.Handler = (*CreateMessageHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONClaudeError(ctx, w, types.NewErrorResponse(
				types.ErrorTypeInvalidRequest,
				http.StatusText(http.StatusRequestEntityTooLarge),
			))
			return
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONClaudeError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeInvalidRequest,
			http.StatusText(http.StatusBadRequest),
		))
		return
	}

	if req.Stream {
		h.streamResponse(ctx, w, req)
	} else {
		h.writeResponse(ctx, w, req)
	}
}

// writeResponse handles non-streaming message requests.
func (h *CreateMessageHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req types.CreateMessageRequest,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeJSONClaudeError(ctx, w, asClaudeError(err))
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse streams message events using SSE.
func (h *CreateMessageHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req types.CreateMessageRequest,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err)
		writeJSONClaudeError(ctx, w, asClaudeError(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONClaudeError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeAPI,
			http.StatusText(http.StatusInternalServerError),
		))
		return
	}

	for event, err := range stream {
		// Check for client disconnect before processing the event
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)

			// The Anthropic SDK recognizes an error event mid-stream and
			// surfaces it to the caller; its data payload is the same
			// {"type":"error","error":{...}} envelope as buffered errors.
			errResp := asClaudeError(err)
			if writeErr := sse.WriteEvent(types.EventError); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error event type", "error", writeErr)
				return
			}
			if writeErr := sse.WriteData(errResp); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error", "error", writeErr)
			}
			return
		}

		if writeErr := sse.WriteEvent(event.Type); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write event type", "error", writeErr)
			return
		}
		if writeErr := sse.WriteData(event); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write event", "error", writeErr)
			return
		}
	}
	// The Claude stream protocol terminates with message_stop; there is no
	// [DONE] sentinel.
}

// asClaudeError normalizes adapter errors into the Claude error envelope,
// wrapping unexpected error types as api_error for client visibility.
func asClaudeError(err error) *types.ErrorResponse {
	var errResp *types.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return types.NewErrorResponse(types.ErrorTypeAPI, err.Error())
}
