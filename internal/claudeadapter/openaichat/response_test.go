package openaichat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

func decodeChatResponse(t *testing.T, body string) *ChatResponse {
	t.Helper()
	var resp ChatResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response fixture: %v", err)
	}
	return &resp
}

func TestToMessageResponseText(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	chatResp := decodeChatResponse(t, `{
		"id":"chatcmpl-123","object":"chat.completion","model":"gpt-test",
		"choices":[{"index":0,"message":{"role":"assistant","content":"4"},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":12,"completion_tokens":1,"total_tokens":13}
	}`)

	resp, err := adapter.toMessageResponse(chatResp)
	if err != nil {
		t.Fatalf("toMessageResponse() error = %v", err)
	}

	if resp.ID != "chatcmpl-123" || resp.Type != "message" || resp.Role != "assistant" {
		t.Errorf("envelope = %+v", resp)
	}
	if len(resp.Content) != 1 || resp.Content[0].Type != types.ContentBlockTypeText || resp.Content[0].Text != "4" {
		t.Errorf("content = %+v, want single text block", resp.Content)
	}
	if resp.StopReason == nil || *resp.StopReason != types.StopReasonEndTurn {
		t.Errorf("stop_reason = %v, want end_turn", resp.StopReason)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 1 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestToMessageResponseToolCalls(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	chatResp := decodeChatResponse(t, `{
		"id":"chatcmpl-123","model":"gpt-test",
		"choices":[{"index":0,"message":{"role":"assistant","content":null,
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_time","arguments":"{\"tz\":\"UTC\"}"}}]},
			"finish_reason":"tool_calls"}]
	}`)

	resp, err := adapter.toMessageResponse(chatResp)
	if err != nil {
		t.Fatalf("toMessageResponse() error = %v", err)
	}

	if len(resp.Content) != 1 {
		t.Fatalf("got %d blocks, want 1", len(resp.Content))
	}
	block := resp.Content[0]
	if block.Type != types.ContentBlockTypeToolUse || block.ID != "call_1" || block.Name != "get_time" {
		t.Errorf("tool_use block = %+v", block)
	}
	if string(block.Input) != `{"tz":"UTC"}` {
		t.Errorf("input = %s", block.Input)
	}
	if resp.StopReason == nil || *resp.StopReason != types.StopReasonToolUse {
		t.Errorf("stop_reason = %v, want tool_use", resp.StopReason)
	}
}

func TestToMessageResponseInvalidToolArguments(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	chatResp := decodeChatResponse(t, `{
		"id":"x","model":"gpt-test",
		"choices":[{"index":0,"message":{"role":"assistant",
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"f","arguments":"{broken"}}]},
			"finish_reason":"tool_calls"}]
	}`)

	resp, err := adapter.toMessageResponse(chatResp)
	if err != nil {
		t.Fatalf("toMessageResponse() error = %v", err)
	}
	if string(resp.Content[0].Input) != "{}" {
		t.Errorf("input = %s, want empty object fallback", resp.Content[0].Input)
	}
}

func TestToMessageResponseNoChoices(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})

	_, err := adapter.toMessageResponse(&ChatResponse{ID: "x"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
	var errResp *types.ErrorResponse
	if !errors.As(err, &errResp) || errResp.Err.Type != types.ErrorTypeAPI {
		t.Errorf("error = %v, want api_error envelope", err)
	}
}

func TestToMessageResponseGeneratesID(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	chatResp := decodeChatResponse(t, `{"model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)

	resp, err := adapter.toMessageResponse(chatResp)
	if err != nil {
		t.Fatalf("toMessageResponse() error = %v", err)
	}
	if !strings.HasPrefix(resp.ID, "msg_") {
		t.Errorf("ID = %q, want generated msg_ prefix", resp.ID)
	}
}

func TestToStopReason(t *testing.T) {
	tests := []struct {
		finishReason string
		want         string
	}{
		{"stop", types.StopReasonEndTurn},
		{"length", types.StopReasonMaxTokens},
		{"tool_calls", types.StopReasonToolUse},
		{"function_call", types.StopReasonToolUse},
		{"content_filter", types.StopReasonStopSequence},
		{"something_new", types.StopReasonEndTurn},
		{"", types.StopReasonEndTurn},
	}

	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	for _, tt := range tests {
		if got := adapter.toStopReason(tt.finishReason); got != tt.want {
			t.Errorf("toStopReason(%q) = %q, want %q", tt.finishReason, got, tt.want)
		}
	}
}

func TestToStopReasonOverrides(t *testing.T) {
	adapter := New(Upstream{
		BaseURL:             "https://api.test.example/v1",
		StopReasonOverrides: map[string]string{"content_filter": types.StopReasonEndTurn},
	})

	if got := adapter.toStopReason("content_filter"); got != types.StopReasonEndTurn {
		t.Errorf("toStopReason(content_filter) = %q, want override end_turn", got)
	}
	// Untouched entries keep the default table.
	if got := adapter.toStopReason("length"); got != types.StopReasonMaxTokens {
		t.Errorf("toStopReason(length) = %q, want max_tokens", got)
	}
}

func TestToUpstreamStatusError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{
			name:     "rate limit with upstream message",
			status:   429,
			body:     `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`,
			wantType: types.ErrorTypeRateLimit,
			wantMsg:  "slow down",
		},
		{
			name:     "auth failure",
			status:   401,
			body:     `{"error":{"message":"bad key","type":"invalid_api_key"}}`,
			wantType: types.ErrorTypeAuthentication,
			wantMsg:  "bad key",
		},
		{
			name:     "unparseable body falls back to status text",
			status:   503,
			body:     `upstream exploded`,
			wantType: types.ErrorTypeOverloaded,
			wantMsg:  "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errResp := toUpstreamStatusError(tt.status, []byte(tt.body))
			if errResp.Err.Type != tt.wantType {
				t.Errorf("type = %q, want %q", errResp.Err.Type, tt.wantType)
			}
			if errResp.Err.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", errResp.Err.Message, tt.wantMsg)
			}
		})
	}
}
