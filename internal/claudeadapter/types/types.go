package types

import (
	"encoding/json"
	"fmt"
)

// Content block discriminator values used by the Claude Messages wire format.
const (
	ContentBlockTypeText       = "text"
	ContentBlockTypeImage      = "image"
	ContentBlockTypeToolUse    = "tool_use"
	ContentBlockTypeToolResult = "tool_result"
)

// Stop reasons in Claude's vocabulary.
const (
	StopReasonEndTurn      = "end_turn"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonToolUse      = "tool_use"
	StopReasonStopSequence = "stop_sequence"
)

// ContentBlock is one typed unit of message content. The Type field
// discriminates the variant; only the fields belonging to that variant are
// populated. Unknown variants survive decoding (Type is preserved) so callers
// can skip them without failing the whole message.
type ContentBlock struct {
	Type string `json:"type"`

	// Text variant.
	Text string `json:"text,omitempty"`

	// Image variant.
	Source *ImageSource `json:"source,omitempty"`

	// ToolUse variant. Input is kept raw: during streaming it may be a
	// partial JSON document that only becomes parseable once complete.
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// ToolResult variant. Content is either a JSON string or an array of
	// nested content blocks.
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ImageSource describes an image reference, either inline base64 data or a URL.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// MessageContent holds a message body that the wire format allows to be either
// a plain string shorthand or an ordered array of content blocks.
type MessageContent struct {
	// Blocks is the normalized form. When the wire carried a plain string,
	// Blocks holds a single text block and IsString is true.
	Blocks   []ContentBlock
	IsString bool
}

// UnmarshalJSON accepts both the string shorthand and the block array form.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.IsString = true
		c.Blocks = []ContentBlock{{Type: ContentBlockTypeText, Text: s}}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("message content must be a string or an array of content blocks: %w", err)
	}
	c.IsString = false
	c.Blocks = blocks
	return nil
}

// MarshalJSON always emits the canonical block array form.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Blocks)
}

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// SystemPrompt is the request-level system field: a plain string or an array
// of text content blocks.
type SystemPrompt = MessageContent

// Tool is a Claude tool definition. InputSchema is carried verbatim so the
// parameter schema survives translation byte-for-byte.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolChoice selects how the model may use tools.
type ToolChoice struct {
	Type                   string `json:"type"`
	Name                   string `json:"name,omitempty"`
	DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
}

// CreateMessageRequest is an inbound Claude Messages API request.
type CreateMessageRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int64         `json:"max_tokens"`
	Messages      []Message     `json:"messages"`
	System        *SystemPrompt `json:"system,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	Tools         []Tool        `json:"tools,omitempty"`
	ToolChoice    *ToolChoice   `json:"tool_choice,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Usage reports provider-supplied token counts. Values pass through from the
// upstream without recomputation.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// CreateMessageResponse is an outbound Claude Messages API response.
type CreateMessageResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// ModelInfo is one entry of the model-listing endpoint. The fields merge the
// Claude shape (type/display_name) with the OpenAI shape (owned_by) because
// clients of either kind hit this endpoint and ignore fields they don't know.
type ModelInfo struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	OwnedBy     string `json:"owned_by,omitempty"`
}

// ModelList is the model-listing response body.
type ModelList struct {
	Data    []ModelInfo `json:"data"`
	HasMore bool        `json:"has_more"`
}
