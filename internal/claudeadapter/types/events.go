package types

// Stream event names of the Claude Messages wire format. Each event is framed
// as "event: <name>" followed by a "data: <json>" line and a blank line.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Delta discriminators carried inside content_block_delta events.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// StreamDelta is the delta body of content_block_delta and message_delta
// events. Type discriminates: text_delta carries Text, input_json_delta
// carries PartialJSON, and message_delta carries StopReason/StopSequence.
type StreamDelta struct {
	Type         string  `json:"type,omitempty"`
	Text         string  `json:"text,omitempty"`
	PartialJSON  string  `json:"partial_json,omitempty"`
	StopReason   *string `json:"stop_reason,omitempty"`
	StopSequence *string `json:"stop_sequence,omitempty"`
}

// MessageStreamEvent is one event of a Claude-style incremental stream.
// Exactly the fields relevant to the event's Type are populated.
type MessageStreamEvent struct {
	Type string `json:"type"`

	// message_start.
	Message *CreateMessageResponse `json:"message,omitempty"`

	// content_block_start / content_block_delta / content_block_stop.
	Index        *int          `json:"index,omitempty"`
	ContentBlock *ContentBlock `json:"content_block,omitempty"`
	Delta        *StreamDelta  `json:"delta,omitempty"`

	// message_delta.
	Usage *Usage `json:"usage,omitempty"`
}
