package openaichat

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// toMessageResponse converts a complete Chat Completions response into a
// Claude message. Only choices[0] is consumed; a response without choices is
// an upstream payload the translator cannot interpret.
func (a *CreateMessageAdapter) toMessageResponse(chatResp *ChatResponse) (*types.CreateMessageResponse, error) {
	if len(chatResp.Choices) == 0 {
		return nil, types.NewErrorResponse(types.ErrorTypeAPI, "upstream response has no choices")
	}
	choice := chatResp.Choices[0]

	id := chatResp.ID
	if id == "" {
		id = newMessageID()
	}

	resp := &types.CreateMessageResponse{
		ID:      id,
		Type:    "message",
		Role:    "assistant",
		Model:   chatResp.Model,
		Content: []types.ContentBlock{},
	}

	if choice.Message != nil {
		if text, ok := choice.Message.Content.(string); ok && text != "" {
			resp.Content = append(resp.Content, types.ContentBlock{
				Type: types.ContentBlockTypeText,
				Text: text,
			})
		}

		for _, call := range choice.Message.ToolCalls {
			block, err := toToolUseBlock(call)
			if err != nil {
				return nil, fmt.Errorf("transform tool call %q: %w", call.ID, err)
			}
			resp.Content = append(resp.Content, block)
		}
	}

	if choice.FinishReason != nil {
		stopReason := a.toStopReason(*choice.FinishReason)
		resp.StopReason = &stopReason
	}

	if chatResp.Usage != nil {
		resp.Usage = toUsage(chatResp.Usage)
	}

	return resp, nil
}

// toToolUseBlock converts a completed tool call into a tool_use content block
// with the argument payload parsed as structured input. Arguments that are not
// valid JSON degrade to an empty object rather than failing the response.
func toToolUseBlock(call ToolCall) (types.ContentBlock, error) {
	id := call.ID
	if id == "" {
		id = newToolCallID()
	}

	input := json.RawMessage(`{}`)
	if call.Function.Arguments != "" {
		if json.Valid([]byte(call.Function.Arguments)) {
			input = json.RawMessage(call.Function.Arguments)
		}
	}

	return types.ContentBlock{
		Type:  types.ContentBlockTypeToolUse,
		ID:    id,
		Name:  call.Function.Name,
		Input: input,
	}, nil
}

// toStopReason maps Chat Completions finish reasons to Claude stop reasons.
//
// The table is total: unknown values map to end_turn rather than failing.
// content_filter → stop_sequence is an approximation (Claude has no
// content-filter stop), so providers may override individual entries via
// StopReasonOverrides.
func (a *CreateMessageAdapter) toStopReason(finishReason string) string {
	if override, ok := a.upstream.StopReasonOverrides[finishReason]; ok && override != "" {
		return override
	}

	switch finishReason {
	case "stop":
		return types.StopReasonEndTurn
	case "length":
		return types.StopReasonMaxTokens
	case "tool_calls":
		return types.StopReasonToolUse
	case "function_call": // legacy spelling still emitted by some providers
		return types.StopReasonToolUse
	case "content_filter":
		return types.StopReasonStopSequence
	default:
		return types.StopReasonEndTurn
	}
}

// toUsage passes provider-reported token counts through without recomputation.
func toUsage(usage *ChatUsage) types.Usage {
	return types.Usage{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
	}
}

// newMessageID generates a Claude-style message ID (msg_<token>).
// Used as fallback when the upstream doesn't provide an ID.
func newMessageID() string {
	b := make([]byte, 24) // 24 bytes yields 32 URL-safe base64 characters
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	// Use RawURLEncoding to avoid '+', '/' and trailing '='
	return "msg_" + base64.RawURLEncoding.EncodeToString(b)
}

// newToolCallID generates a Claude-style tool use ID (format: toolu_<8-char-uuid>).
func newToolCallID() string {
	return fmt.Sprintf("toolu_%s", uuid.New().String()[:8])
}
