package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// ProcessRequest translates the client request, performs the upstream call,
// and translates the complete response back. The transport chain is expected
// to handle authentication.
func (a *CreateMessageAdapter) ProcessRequest(ctx context.Context, clientReq types.CreateMessageRequest, transport http.RoundTripper) (*types.CreateMessageResponse, error) {
	chatReq, err := a.buildChatRequest(clientReq)
	if err != nil {
		return nil, err
	}

	resp, err := a.send(ctx, chatReq, transport)
	if err != nil {
		return nil, toMessageError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, toUpstreamStatusError(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, types.NewErrorResponse(types.ErrorTypeAPI, fmt.Sprintf("decode upstream response: %v", err))
	}

	return a.toMessageResponse(&chatResp)
}

// send performs the HTTP call against the upstream chat completions endpoint.
func (a *CreateMessageAdapter) send(ctx context.Context, chatReq *ChatRequest, transport http.RoundTripper) (*http.Response, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.upstream.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if chatReq.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	client := &http.Client{
		Transport: transport,
		// Client.Timeout = 0 allows long-running SSE streams; stream reads
		// are bounded by the first-byte and inter-chunk timeouts instead.
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}
