package openaichat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// ProcessStreamingRequest translates the client request, opens a streaming
// upstream call, and returns an iterator of Claude-style stream events. The
// iterator owns the upstream response body; breaking out of the iteration or
// cancelling ctx releases the connection.
//
// A non-nil error from the iterator is terminal: the handler is expected to
// frame it as an error event and stop reading.
func (a *CreateMessageAdapter) ProcessStreamingRequest(ctx context.Context, clientReq types.CreateMessageRequest, transport http.RoundTripper) (iter.Seq2[*types.MessageStreamEvent, error], error) {
	clientReq.Stream = true
	chatReq, err := a.buildChatRequest(clientReq)
	if err != nil {
		return nil, err
	}

	resp, err := a.send(ctx, chatReq, transport)
	if err != nil {
		return nil, toMessageError(err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		return nil, toUpstreamStatusError(resp.StatusCode, body)
	}

	return a.streamEvents(ctx, clientReq.Model, resp), nil
}

// streamLine is one line read from the upstream SSE body, or the read error
// that ended it.
type streamLine struct {
	data []byte
	err  error
}

// maxStreamLine bounds a single SSE line; chunks beyond this indicate a
// misbehaving upstream rather than legitimate payload.
const maxStreamLine = 1 << 20

func (a *CreateMessageAdapter) streamEvents(ctx context.Context, model string, resp *http.Response) iter.Seq2[*types.MessageStreamEvent, error] {
	return func(yield func(*types.MessageStreamEvent, error) bool) {
		defer func() { _ = resp.Body.Close() }()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		st := newStreamState(newMessageID(), model)
		for _, ev := range st.begin() {
			if !yield(ev, nil) {
				return
			}
		}

		lines := make(chan streamLine)
		go readLines(ctx, resp.Body, lines)

		// The first chunk gets its own, typically shorter, deadline; every
		// gap after that is bounded by the inter-chunk timeout.
		timeout := a.upstream.FirstByteTimeout
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-timer.C:
				yieldAbort(yield, st, streamTimeoutError(timeout))
				return

			case line := <-lines:
				if line.err != nil {
					if line.err == io.EOF {
						// Some providers close the stream without a [DONE]
						// sentinel; treat a clean EOF as end of stream.
						yieldAll(yield, st.finish())
						return
					}
					yieldAbort(yield, st, types.NewErrorResponse(types.ErrorTypeAPI, fmt.Sprintf("upstream stream failed: %v", line.err)))
					return
				}

				// Any received line, including blank separators and comment
				// keep-alives, counts as upstream liveness for the timer.
				if payload, ok := ssePayload(line.data); ok {
					if string(payload) == "[DONE]" {
						yieldAll(yield, st.finish())
						return
					}

					var chunk ChatChunk
					if err := json.Unmarshal(payload, &chunk); err != nil {
						yieldAbort(yield, st, types.NewErrorResponse(types.ErrorTypeAPI, fmt.Sprintf("decode upstream chunk: %v", err)))
						return
					}
					if !yieldAll(yield, a.transition(st, &chunk)) {
						return
					}
					if st.done {
						return
					}
				}
			}

			timeout = a.upstream.ChunkTimeout
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(timeout)
		}
	}
}

// readLines feeds body lines into out until the body ends or ctx is
// cancelled. It always sends a terminal streamLine carrying the read error
// (io.EOF on clean end).
func readLines(ctx context.Context, body io.Reader, out chan<- streamLine) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)

	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		select {
		case out <- streamLine{data: line}:
		case <-ctx.Done():
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case out <- streamLine{err: err}:
	case <-ctx.Done():
	}
}

// ssePayload extracts the payload of a "data:" SSE line. Blank lines, event
// lines, and comment keep-alives are not payloads.
func ssePayload(line []byte) ([]byte, bool) {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return nil, false
	}
	payload := bytes.TrimSpace(line[len("data:"):])
	if len(payload) == 0 {
		return nil, false
	}
	return payload, true
}

func streamTimeoutError(timeout time.Duration) *types.ErrorResponse {
	return types.NewErrorResponse(types.ErrorTypeAPI, fmt.Sprintf("upstream stream stalled: no chunk received within %s", timeout))
}

// yieldAll yields every event, reporting whether the consumer wants more.
func yieldAll(yield func(*types.MessageStreamEvent, error) bool, events []*types.MessageStreamEvent) bool {
	for _, ev := range events {
		if !yield(ev, nil) {
			return false
		}
	}
	return true
}

// yieldAbort closes any open block, then delivers the terminal error.
func yieldAbort(yield func(*types.MessageStreamEvent, error) bool, st *streamState, errResp *types.ErrorResponse) {
	if yieldAll(yield, st.abort()) {
		yield(nil, errResp)
	}
}

// streamState tracks the translation of one upstream chunk stream into a
// Claude event sequence. At most one content block is open at a time; block
// indices are allocated in order of first appearance.
type streamState struct {
	messageID string
	model     string

	openIndex int // index of the open block, -1 when none
	openKind  string
	nextIndex int

	// toolJSON accumulates the argument fragments of the open tool_use
	// block. The fragments are forwarded as they arrive; the accumulated
	// document backs the empty-arguments fallback on block close.
	toolJSON strings.Builder

	pendingStop string
	usage       *types.Usage
	deltaSent   bool
	done        bool
}

func newStreamState(messageID, model string) *streamState {
	return &streamState{
		messageID: messageID,
		model:     model,
		openIndex: -1,
	}
}

// begin emits the stream preamble: a message_start with an empty message
// shell, then a single ping.
func (st *streamState) begin() []*types.MessageStreamEvent {
	return []*types.MessageStreamEvent{
		{
			Type: types.EventMessageStart,
			Message: &types.CreateMessageResponse{
				ID:      st.messageID,
				Type:    "message",
				Role:    "assistant",
				Content: []types.ContentBlock{},
				Model:   st.model,
			},
		},
		{Type: types.EventPing},
	}
}

// transition consumes one upstream chunk and returns the Claude events it
// produces, advancing the block bookkeeping as a side effect.
func (a *CreateMessageAdapter) transition(st *streamState, chunk *ChatChunk) []*types.MessageStreamEvent {
	if st.done {
		return nil
	}

	var events []*types.MessageStreamEvent

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			events = append(events, st.textDelta(choice.Delta.Content)...)
		}
		for _, call := range choice.Delta.ToolCalls {
			events = append(events, st.toolCallDelta(call)...)
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			// The finish chunk ends content but not the stream: the final
			// usage may still arrive in a trailing usage-only chunk, so the
			// mapped stop reason is parked until then.
			events = append(events, st.closeOpenBlock()...)
			st.pendingStop = a.toStopReason(*choice.FinishReason)
		}
	}

	if chunk.Usage != nil {
		usage := toUsage(chunk.Usage)
		st.usage = &usage
	}

	if st.pendingStop != "" && st.usage != nil && !st.deltaSent {
		events = append(events, st.messageDelta())
	}

	return events
}

// finish ends the stream: any open block is closed, the message_delta is
// emitted if it has not been already, and message_stop terminates the
// sequence. Chunks arriving after finish are ignored.
func (st *streamState) finish() []*types.MessageStreamEvent {
	if st.done {
		return nil
	}
	st.done = true

	events := st.closeOpenBlock()
	if !st.deltaSent {
		events = append(events, st.messageDelta())
	}
	return append(events, &types.MessageStreamEvent{Type: types.EventMessageStop})
}

// abort closes any open block so the consumer never sees a dangling
// content_block_start, and marks the stream terminated. The caller is
// responsible for delivering the error itself.
func (st *streamState) abort() []*types.MessageStreamEvent {
	if st.done {
		return nil
	}
	st.done = true
	return st.closeOpenBlock()
}

// textDelta routes a text fragment into an open text block, opening one (and
// closing a tool block) as needed.
func (st *streamState) textDelta(text string) []*types.MessageStreamEvent {
	var events []*types.MessageStreamEvent

	if st.openKind != "" && st.openKind != types.ContentBlockTypeText {
		events = append(events, st.closeOpenBlock()...)
	}
	if st.openKind == "" {
		events = append(events, st.openBlock(types.ContentBlock{
			Type: types.ContentBlockTypeText,
			Text: "",
		}))
	}

	return append(events, &types.MessageStreamEvent{
		Type:  types.EventContentBlockDelta,
		Index: intPtr(st.openIndex),
		Delta: &types.StreamDelta{Type: types.DeltaTypeText, Text: text},
	})
}

// toolCallDelta routes one tool-call fragment. A fragment carrying an ID or
// function name announces a new call and opens a fresh tool_use block;
// argument substrings stream into the open block as input_json_delta events.
func (st *streamState) toolCallDelta(call ToolCallDelta) []*types.MessageStreamEvent {
	var events []*types.MessageStreamEvent

	if call.ID != "" || call.Function.Name != "" {
		events = append(events, st.closeOpenBlock()...)

		id := call.ID
		if id == "" {
			id = newToolCallID()
		}
		events = append(events, st.openBlock(types.ContentBlock{
			Type:  types.ContentBlockTypeToolUse,
			ID:    id,
			Name:  call.Function.Name,
			Input: json.RawMessage("{}"),
		}))
	}

	if call.Function.Arguments == "" {
		return events
	}
	if st.openKind != types.ContentBlockTypeToolUse {
		// Argument fragment with no announced call; nothing to attach it to.
		return events
	}

	st.toolJSON.WriteString(call.Function.Arguments)
	return append(events, &types.MessageStreamEvent{
		Type:  types.EventContentBlockDelta,
		Index: intPtr(st.openIndex),
		Delta: &types.StreamDelta{Type: types.DeltaTypeInputJSON, PartialJSON: call.Function.Arguments},
	})
}

// openBlock allocates the next block index and emits its content_block_start.
func (st *streamState) openBlock(block types.ContentBlock) *types.MessageStreamEvent {
	st.openIndex = st.nextIndex
	st.nextIndex++
	st.openKind = block.Type
	st.toolJSON.Reset()

	return &types.MessageStreamEvent{
		Type:         types.EventContentBlockStart,
		Index:        intPtr(st.openIndex),
		ContentBlock: &block,
	}
}

// closeOpenBlock emits the content_block_stop for the open block, if any. A
// tool block whose arguments never arrived gets an explicit "{}" delta first
// so the accumulated input is always a parseable document.
func (st *streamState) closeOpenBlock() []*types.MessageStreamEvent {
	if st.openIndex < 0 {
		return nil
	}

	var events []*types.MessageStreamEvent
	if st.openKind == types.ContentBlockTypeToolUse && st.toolJSON.Len() == 0 {
		events = append(events, &types.MessageStreamEvent{
			Type:  types.EventContentBlockDelta,
			Index: intPtr(st.openIndex),
			Delta: &types.StreamDelta{Type: types.DeltaTypeInputJSON, PartialJSON: "{}"},
		})
	}
	events = append(events, &types.MessageStreamEvent{
		Type:  types.EventContentBlockStop,
		Index: intPtr(st.openIndex),
	})

	st.openIndex = -1
	st.openKind = ""
	st.toolJSON.Reset()
	return events
}

// messageDelta emits the terminal stop reason and usage. Streams that never
// saw a finish_reason report end_turn; usage defaults to zero counts when the
// provider sent none.
func (st *streamState) messageDelta() *types.MessageStreamEvent {
	st.deltaSent = true

	stop := st.pendingStop
	if stop == "" {
		stop = types.StopReasonEndTurn
	}
	usage := types.Usage{}
	if st.usage != nil {
		usage = *st.usage
	}

	return &types.MessageStreamEvent{
		Type: types.EventMessageDelta,
		Delta: &types.StreamDelta{
			StopReason:   &stop,
			StopSequence: nil,
		},
		Usage: &usage,
	}
}

func intPtr(i int) *int { return &i }
