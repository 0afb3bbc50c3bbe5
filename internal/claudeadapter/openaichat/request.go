package openaichat

import (
	"encoding/json"
	"fmt"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// buildChatRequest translates an inbound Claude request into a Chat
// Completions request for this adapter's upstream. Translation never fails on
// missing optional fields; only the structurally required model, max_tokens,
// and messages fields are enforced.
func (a *CreateMessageAdapter) buildChatRequest(clientReq types.CreateMessageRequest) (*ChatRequest, error) {
	if clientReq.Model == "" {
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, "model: required field is missing")
	}
	if clientReq.MaxTokens <= 0 {
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, "max_tokens: required field is missing")
	}
	if len(clientReq.Messages) == 0 {
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, "messages: required field is missing")
	}

	chatReq := &ChatRequest{
		Model:       a.resolveModel(clientReq.Model),
		MaxTokens:   clientReq.MaxTokens,
		Temperature: clientReq.Temperature,
		TopP:        clientReq.TopP,
		Stop:        clientReq.StopSequences,
		Stream:      clientReq.Stream,
	}

	if a.upstream.MaxTokens > 0 {
		chatReq.MaxTokens = a.upstream.MaxTokens
	}

	if clientReq.Stream {
		// Ask the provider to attach token usage to the terminal chunk so
		// the stream translator can report it in message_delta.
		chatReq.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	// System merge: the Claude system field becomes the leading system-role
	// entry of the message sequence.
	if clientReq.System != nil {
		chatReq.Messages = append(chatReq.Messages, ChatMessage{
			Role:    "system",
			Content: flattenText(clientReq.System.Blocks),
		})
	}

	for i, msg := range clientReq.Messages {
		converted, err := fromMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("transform message %d: %w", i, err)
		}
		chatReq.Messages = append(chatReq.Messages, converted...)
	}

	chatReq.Tools = fromTools(clientReq.Tools)
	chatReq.ToolChoice = fromToolChoice(clientReq.ToolChoice)

	return chatReq, nil
}

// resolveModel maps a Claude model identifier to the provider's native one.
// Unmapped names fall back to the provider's "default" entry when configured,
// otherwise they pass through verbatim. Resolution never fails.
func (a *CreateMessageAdapter) resolveModel(model string) string {
	if mapped, ok := a.upstream.ModelMap[model]; ok && mapped != "" {
		return mapped
	}
	if fallback, ok := a.upstream.ModelMap["default"]; ok && fallback != "" {
		return fallback
	}
	return model
}

// fromMessage converts one Claude message into one or more Chat Completions
// entries. Tool results become separate tool-role messages, emitted in block
// order so the conversation sequence is preserved end-to-end. Block kinds
// without a Chat Completions equivalent are dropped without error.
func fromMessage(msg types.Message) ([]ChatMessage, error) {
	var (
		out       []ChatMessage
		parts     []ContentPart
		toolCalls []ToolCall
		hasImage  bool
	)

	for i, block := range msg.Content.Blocks {
		switch block.Type {
		case types.ContentBlockTypeText:
			parts = append(parts, ContentPart{Type: "text", Text: block.Text})

		case types.ContentBlockTypeImage:
			part, err := fromImageBlock(block)
			if err != nil {
				return nil, fmt.Errorf("transform image in content block %d: %w", i, err)
			}
			parts = append(parts, part)
			hasImage = true

		case types.ContentBlockTypeToolUse:
			toolCalls = append(toolCalls, fromToolUseBlock(block))

		case types.ContentBlockTypeToolResult:
			// Tool results are their own role in the Chat Completions model.
			// Flush any accumulated content first to keep block order.
			if len(parts) > 0 || len(toolCalls) > 0 {
				out = append(out, newChatMessage(msg.Role, parts, toolCalls, hasImage))
				parts, toolCalls, hasImage = nil, nil, false
			}
			out = append(out, ChatMessage{
				Role:       "tool",
				ToolCallID: block.ToolUseID,
				Content:    flattenToolResultContent(block.Content),
			})

		default:
			// Lossy by design: unsupported block kinds are dropped.
		}
	}

	if len(parts) > 0 || len(toolCalls) > 0 {
		out = append(out, newChatMessage(msg.Role, parts, toolCalls, hasImage))
	}
	return out, nil
}

// newChatMessage assembles a Chat Completions entry from converted blocks.
// Text-only content collapses to the string shorthand; image-bearing content
// keeps the typed parts array.
func newChatMessage(role string, parts []ContentPart, toolCalls []ToolCall, hasImage bool) ChatMessage {
	msg := ChatMessage{Role: role, ToolCalls: toolCalls}
	if hasImage {
		msg.Content = parts
		return msg
	}

	var text string
	for _, p := range parts {
		text += p.Text
	}
	if text == "" && len(toolCalls) > 0 {
		msg.Content = nil
	} else {
		msg.Content = text
	}
	return msg
}

// fromImageBlock converts a Claude image block to an image-url content part.
// Base64 sources are re-rendered as data: URIs.
func fromImageBlock(block types.ContentBlock) (ContentPart, error) {
	if block.Source == nil {
		return ContentPart{}, fmt.Errorf("image block has no source")
	}
	switch block.Source.Type {
	case "base64":
		dataURL := "data:" + block.Source.MediaType + ";base64," + block.Source.Data
		return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}}, nil
	case "url":
		return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: block.Source.URL}}, nil
	default:
		return ContentPart{}, fmt.Errorf("unsupported image source type %q", block.Source.Type)
	}
}

// fromToolUseBlock renders a prior-turn tool invocation as a Chat Completions
// tool call. The structured input becomes a JSON-encoded argument string.
func fromToolUseBlock(block types.ContentBlock) ToolCall {
	arguments := "{}"
	if len(block.Input) > 0 {
		arguments = string(block.Input)
	}

	id := block.ID
	if id == "" {
		id = newToolCallID()
	}

	return ToolCall{
		ID:   id,
		Type: "function",
		Function: FunctionCall{
			Name:      block.Name,
			Arguments: arguments,
		},
	}
}

// flattenText joins the text of a block sequence, used for system prompts and
// other positions where the target expects a plain string.
func flattenText(blocks []types.ContentBlock) string {
	var text string
	for _, block := range blocks {
		if block.Type == types.ContentBlockTypeText {
			text += block.Text
		}
	}
	return text
}

// flattenToolResultContent renders a tool_result payload (a JSON string or a
// nested block array) as the plain string the tool-role message expects.
func flattenToolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []types.ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var text string
		for _, block := range blocks {
			if block.Type == types.ContentBlockTypeText {
				if text != "" {
					text += "\n"
				}
				text += block.Text
			}
		}
		return text
	}

	// Unrecognized shape: pass the raw JSON through rather than dropping it.
	return string(raw)
}

// fromTools re-renders Claude tool definitions into the function tool schema,
// preserving name, description, and the parameter schema verbatim.
func fromTools(tools []types.Tool) []ChatTool {
	if len(tools) == 0 {
		return nil
	}

	chatTools := make([]ChatTool, 0, len(tools))
	for _, tool := range tools {
		chatTools = append(chatTools, ChatTool{
			Type: "function",
			Function: ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	return chatTools
}

// fromToolChoice converts Claude tool_choice to the Chat Completions form.
// Unknown types fall back to auto, matching the provider default.
func fromToolChoice(choice *types.ToolChoice) any {
	if choice == nil {
		return nil
	}

	switch choice.Type {
	case "auto":
		return "auto"
	case "any":
		return "required"
	case "none":
		return "none"
	case "tool":
		named := NamedToolChoice{Type: "function"}
		named.Function.Name = choice.Name
		return named
	default:
		return "auto"
	}
}
