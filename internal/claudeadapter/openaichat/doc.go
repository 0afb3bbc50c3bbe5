// Package openaichat adapts Claude Messages requests to OpenAI-compatible
// Chat Completions providers, enabling Anthropic SDK clients to work with any
// such provider without code changes.
//
// The adapter handles:
//
//   - Message transformation: The Claude system field becomes the leading
//     system-role message. Mixed content blocks are split so that tool
//     results become separate tool-role messages while the relative order of
//     the remaining content is preserved.
//
//   - Tool calling: tool_use blocks map to assistant tool_calls; tool input
//     schemas pass through verbatim as function parameters. Invalid argument
//     JSON coming back from the provider degrades to an empty object rather
//     than failing the response.
//
//   - Stop reasons: finish_reason values translate through a total table
//     (stop → end_turn, length → max_tokens, tool_calls → tool_use,
//     content_filter → stop_sequence) with per-provider overrides.
//
//   - Streaming: Translates Chat Completions chunks into Claude's SSE event
//     lifecycle (message_start .. content_block_* .. message_delta,
//     message_stop), managing block indices, tool argument accumulation, and
//     stall timeouts.
//
// # Adapters
//
// CreateMessageAdapter: Claude CreateMessage → Chat Completions
package openaichat
