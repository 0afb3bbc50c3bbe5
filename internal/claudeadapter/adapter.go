package claudeadapter

import (
	"context"
	"iter"
	"net/http"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// Adapter defines the contract for transforming client requests to provider API calls.
//
// Type parameters allow the interface to express transformation contracts for different
// request/response shapes while maintaining compile-time type safety.
//
// Type parameters:
//   - TRequest:  Client-specific request structure
//   - TResponse: Client-specific response structure
//   - TEvent:    Client-specific streaming event protocol
type Adapter[TRequest, TResponse, TEvent any] interface {
	// ProcessRequest transforms the client request, calls the provider API, and returns
	// the transformed response. Implementations should remain stateless.
	ProcessRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (*TResponse, error)

	// ProcessStreamingRequest transforms the client request, calls the provider streaming API,
	// and returns an iterator of transformed events. Implementations should remain stateless
	// across calls; per-stream state lives inside the returned iterator.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (iter.Seq2[*TEvent, error], error)
}

// Type aliases for Claude Messages API operations.
// The wire types live in the types package. CreateMessageAdapter is the
// concrete adapter interface for this operation.
type (
	CreateMessageRequest  = types.CreateMessageRequest
	CreateMessageResponse = types.CreateMessageResponse
	MessageStreamEvent    = types.MessageStreamEvent

	CreateMessageAdapter = Adapter[
		CreateMessageRequest,
		CreateMessageResponse,
		MessageStreamEvent,
	]
)

// Type aliases for Claude-shaped error envelopes.
type (
	MessageError  = types.MessageError
	ErrorResponse = types.ErrorResponse
)
