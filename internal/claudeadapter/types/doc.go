// Package types provides Claude Messages API types for server-side request/response handling.
//
// This package hand-writes the wire types rather than using the anthropic-sdk-go SDK:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: The SDK is designed for making outbound API calls
//     TO Anthropic. This bridge receives inbound Claude-shaped requests FROM clients
//     and translates them TO an OpenAI-compatible upstream. The SDK's client-oriented
//     param types do not support plain JSON decoding of inbound bodies.
//
//  2. FIELD PATTERNS: SDK request types use param.Opt[T] wrappers for optional fields.
//     These types use standard Go pointers and json.RawMessage, which work naturally
//     with json.NewDecoder().
//
//  3. DEPENDENCIES: The wire model here depends only on encoding/json.
package types
