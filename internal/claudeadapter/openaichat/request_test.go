package openaichat

import (
	"encoding/json"
	"errors"
	"testing"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// decodeRequest builds a CreateMessageRequest from wire JSON so tests
// exercise the same decoding path as the HTTP handler.
func decodeRequest(t *testing.T, body string) types.CreateMessageRequest {
	t.Helper()
	var req types.CreateMessageRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode request fixture: %v", err)
	}
	return req
}

func TestBuildChatRequestModelMapping(t *testing.T) {
	tests := []struct {
		name     string
		modelMap map[string]string
		model    string
		want     string
	}{
		{
			name:     "mapped name",
			modelMap: map[string]string{"claude-sonnet-4-5": "gpt-test"},
			model:    "claude-sonnet-4-5",
			want:     "gpt-test",
		},
		{
			name:     "default fallback",
			modelMap: map[string]string{"claude-sonnet-4-5": "gpt-test", "default": "gpt-fallback"},
			model:    "claude-opus-4-6",
			want:     "gpt-fallback",
		},
		{
			name:     "verbatim passthrough without default",
			modelMap: map[string]string{"claude-sonnet-4-5": "gpt-test"},
			model:    "claude-opus-4-6",
			want:     "claude-opus-4-6",
		},
		{
			name:  "no map at all",
			model: "gpt-test",
			want:  "gpt-test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := New(Upstream{BaseURL: "https://api.test.example/v1", ModelMap: tt.modelMap})
			req := decodeRequest(t, `{"model":"`+tt.model+`","max_tokens":64,"messages":[{"role":"user","content":"hi"}]}`)

			chatReq, err := adapter.buildChatRequest(req)
			if err != nil {
				t.Fatalf("buildChatRequest() error = %v", err)
			}
			if chatReq.Model != tt.want {
				t.Errorf("Model = %q, want %q", chatReq.Model, tt.want)
			}
		})
	}
}

func TestBuildChatRequestRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing model", `{"max_tokens":64,"messages":[{"role":"user","content":"hi"}]}`},
		{"missing max_tokens", `{"model":"m","messages":[{"role":"user","content":"hi"}]}`},
		{"missing messages", `{"model":"m","max_tokens":64}`},
	}

	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.buildChatRequest(decodeRequest(t, tt.body))
			if err == nil {
				t.Fatal("buildChatRequest() expected error, got nil")
			}

			var errResp *types.ErrorResponse
			if !errors.As(err, &errResp) {
				t.Fatalf("error %T is not an ErrorResponse", err)
			}
			if errResp.Err.Type != types.ErrorTypeInvalidRequest {
				t.Errorf("error type = %q, want %q", errResp.Err.Type, types.ErrorTypeInvalidRequest)
			}
		})
	}
}

func TestBuildChatRequestSystemMerge(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})

	t.Run("string shorthand", func(t *testing.T) {
		req := decodeRequest(t, `{"model":"m","max_tokens":64,"system":"be terse","messages":[{"role":"user","content":"hi"}]}`)

		chatReq, err := adapter.buildChatRequest(req)
		if err != nil {
			t.Fatalf("buildChatRequest() error = %v", err)
		}

		if len(chatReq.Messages) != 2 {
			t.Fatalf("got %d messages, want 2", len(chatReq.Messages))
		}
		if chatReq.Messages[0].Role != "system" {
			t.Errorf("first role = %q, want system", chatReq.Messages[0].Role)
		}
		if chatReq.Messages[0].Content != "be terse" {
			t.Errorf("system content = %v, want %q", chatReq.Messages[0].Content, "be terse")
		}
		if chatReq.Messages[1].Role != "user" {
			t.Errorf("second role = %q, want user", chatReq.Messages[1].Role)
		}
	})

	t.Run("block array", func(t *testing.T) {
		req := decodeRequest(t, `{"model":"m","max_tokens":64,"system":[{"type":"text","text":"be "},{"type":"text","text":"terse"}],"messages":[{"role":"user","content":"hi"}]}`)

		chatReq, err := adapter.buildChatRequest(req)
		if err != nil {
			t.Fatalf("buildChatRequest() error = %v", err)
		}
		if chatReq.Messages[0].Content != "be terse" {
			t.Errorf("system content = %v, want %q", chatReq.Messages[0].Content, "be terse")
		}
	})

	t.Run("absent system adds nothing", func(t *testing.T) {
		req := decodeRequest(t, `{"model":"m","max_tokens":64,"messages":[{"role":"user","content":"hi"}]}`)

		chatReq, err := adapter.buildChatRequest(req)
		if err != nil {
			t.Fatalf("buildChatRequest() error = %v", err)
		}
		if len(chatReq.Messages) != 1 {
			t.Fatalf("got %d messages, want 1", len(chatReq.Messages))
		}
	})
}

func TestBuildChatRequestStreamingUsageOption(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1"})
	req := decodeRequest(t, `{"model":"m","max_tokens":64,"stream":true,"messages":[{"role":"user","content":"hi"}]}`)

	chatReq, err := adapter.buildChatRequest(req)
	if err != nil {
		t.Fatalf("buildChatRequest() error = %v", err)
	}
	if chatReq.StreamOptions == nil || !chatReq.StreamOptions.IncludeUsage {
		t.Error("streaming request should ask for usage in the terminal chunk")
	}
}

func TestBuildChatRequestMaxTokensOverride(t *testing.T) {
	adapter := New(Upstream{BaseURL: "https://api.test.example/v1", MaxTokens: 512})
	req := decodeRequest(t, `{"model":"m","max_tokens":8192,"messages":[{"role":"user","content":"hi"}]}`)

	chatReq, err := adapter.buildChatRequest(req)
	if err != nil {
		t.Fatalf("buildChatRequest() error = %v", err)
	}
	if chatReq.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", chatReq.MaxTokens)
	}
}

func TestFromMessageToolResultOrdering(t *testing.T) {
	req := decodeRequest(t, `{"model":"m","max_tokens":64,"messages":[{"role":"user","content":[
		{"type":"tool_result","tool_use_id":"toolu_1","content":"42"},
		{"type":"text","text":"now continue"}
	]}]}`)

	msgs, err := fromMessage(req.Messages[0])
	if err != nil {
		t.Fatalf("fromMessage() error = %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "tool" || msgs[0].ToolCallID != "toolu_1" || msgs[0].Content != "42" {
		t.Errorf("tool message = %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != "now continue" {
		t.Errorf("trailing user message = %+v", msgs[1])
	}
}

func TestFromMessageAssistantToolUse(t *testing.T) {
	req := decodeRequest(t, `{"model":"m","max_tokens":64,"messages":[{"role":"assistant","content":[
		{"type":"text","text":"let me check"},
		{"type":"tool_use","id":"toolu_1","name":"get_time","input":{"tz":"UTC"}}
	]}]}`)

	msgs, err := fromMessage(req.Messages[0])
	if err != nil {
		t.Fatalf("fromMessage() error = %v", err)
	}

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.Content != "let me check" {
		t.Errorf("content = %v", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.ID != "toolu_1" || call.Type != "function" || call.Function.Name != "get_time" {
		t.Errorf("tool call = %+v", call)
	}
	if call.Function.Arguments != `{"tz":"UTC"}` {
		t.Errorf("arguments = %q", call.Function.Arguments)
	}
}

func TestFromMessageImageBecomesParts(t *testing.T) {
	req := decodeRequest(t, `{"model":"m","max_tokens":64,"messages":[{"role":"user","content":[
		{"type":"text","text":"what is this?"},
		{"type":"image","source":{"type":"base64","media_type":"image/png","data":"aGk="}}
	]}]}`)

	msgs, err := fromMessage(req.Messages[0])
	if err != nil {
		t.Fatalf("fromMessage() error = %v", err)
	}

	parts, ok := msgs[0].Content.([]ContentPart)
	if !ok {
		t.Fatalf("content %T is not a parts array", msgs[0].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL.URL != "data:image/png;base64,aGk=" {
		t.Errorf("image part = %+v", parts[1])
	}
}

func TestFromMessageDropsUnknownBlocks(t *testing.T) {
	req := decodeRequest(t, `{"model":"m","max_tokens":64,"messages":[{"role":"user","content":[
		{"type":"thinking","thinking":"hmm"},
		{"type":"text","text":"hi"}
	]}]}`)

	msgs, err := fromMessage(req.Messages[0])
	if err != nil {
		t.Fatalf("fromMessage() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Errorf("messages = %+v, want single text-only entry", msgs)
	}
}

func TestFromToolChoice(t *testing.T) {
	tests := []struct {
		name   string
		choice *types.ToolChoice
		want   any
	}{
		{"nil", nil, nil},
		{"auto", &types.ToolChoice{Type: "auto"}, "auto"},
		{"any becomes required", &types.ToolChoice{Type: "any"}, "required"},
		{"none", &types.ToolChoice{Type: "none"}, "none"},
		{"unknown falls back to auto", &types.ToolChoice{Type: "mystery"}, "auto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromToolChoice(tt.choice); got != tt.want {
				t.Errorf("fromToolChoice() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("named tool", func(t *testing.T) {
		got := fromToolChoice(&types.ToolChoice{Type: "tool", Name: "get_time"})
		named, ok := got.(NamedToolChoice)
		if !ok {
			t.Fatalf("fromToolChoice() %T is not a NamedToolChoice", got)
		}
		if named.Type != "function" || named.Function.Name != "get_time" {
			t.Errorf("named choice = %+v", named)
		}
	})
}

func TestFromToolsPreservesSchema(t *testing.T) {
	schema := `{"type":"object","properties":{"tz":{"type":"string"}},"required":["tz"]}`
	tools := fromTools([]types.Tool{{
		Name:        "get_time",
		Description: "Get the current time",
		InputSchema: json.RawMessage(schema),
	}})

	if len(tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(tools))
	}
	if tools[0].Type != "function" || tools[0].Function.Name != "get_time" {
		t.Errorf("tool = %+v", tools[0])
	}
	if string(tools[0].Function.Parameters) != schema {
		t.Errorf("parameters = %s, want schema preserved verbatim", tools[0].Function.Parameters)
	}
}

func TestFlattenToolResultContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string payload", `"42"`, "42"},
		{"block array joined by newline", `[{"type":"text","text":"line one"},{"type":"text","text":"line two"}]`, "line one\nline two"},
		{"unrecognized shape passes through", `{"custom":true}`, `{"custom":true}`},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenToolResultContent(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("flattenToolResultContent() = %q, want %q", got, tt.want)
			}
		})
	}
}
