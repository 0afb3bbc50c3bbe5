package openaichat

import (
	"time"

	"localhost/claude-bridge/internal/claudeadapter"
)

// Upstream describes one OpenAI-compatible provider endpoint as consumed by
// the adapter. The value is built once from configuration and never mutated.
type Upstream struct {
	// BaseURL is the provider's API root, e.g. "https://api.example.com/v1".
	// The adapter appends "/chat/completions".
	BaseURL string

	// ModelMap translates Claude model identifiers to the provider's native
	// identifiers. A missing entry falls back to the "default" entry if one
	// exists, otherwise the requested name passes through verbatim.
	ModelMap map[string]string

	// StopReasonOverrides replaces entries of the default finish_reason →
	// stop_reason table per provider. The content_filter mapping in
	// particular is an approximation with no exact Claude equivalent, so it
	// is kept configurable.
	StopReasonOverrides map[string]string

	// MaxTokens, when positive, overrides the request's max_tokens before
	// translation.
	MaxTokens int64

	// FirstByteTimeout bounds the wait for the first upstream stream chunk;
	// ChunkTimeout bounds each inter-chunk gap. Zero values fall back to
	// defaults.
	FirstByteTimeout time.Duration
	ChunkTimeout     time.Duration
}

const (
	defaultFirstByteTimeout = 30 * time.Second
	defaultChunkTimeout     = 60 * time.Second
)

// CreateMessageAdapter translates Claude Messages API calls into Chat
// Completions calls against a single upstream provider. It is stateless and
// safe for concurrent use; streaming state lives inside each returned
// iterator.
type CreateMessageAdapter struct {
	upstream Upstream
}

// Compile-time check that CreateMessageAdapter satisfies the adapter contract.
var _ claudeadapter.CreateMessageAdapter = (*CreateMessageAdapter)(nil)

// New creates an adapter bound to the given upstream provider.
func New(upstream Upstream) *CreateMessageAdapter {
	if upstream.FirstByteTimeout <= 0 {
		upstream.FirstByteTimeout = defaultFirstByteTimeout
	}
	if upstream.ChunkTimeout <= 0 {
		upstream.ChunkTimeout = defaultChunkTimeout
	}
	return &CreateMessageAdapter{upstream: upstream}
}
