package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"localhost/claude-bridge/internal/claudeadapter/openaichat"
	"localhost/claude-bridge/internal/claudeadapter/types"
	"localhost/claude-bridge/internal/config"
	obsmiddleware "localhost/claude-bridge/internal/observability/middleware"
	"localhost/claude-bridge/internal/tokensource"
)

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy is the HTTP server translating Claude Messages API traffic to the
// configured OpenAI-compatible providers.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// Compile-time check that Proxy can be mounted directly in tests.
var _ http.Handler = (*Proxy)(nil)

// Option configures optional Proxy behavior.
type Option func(*options)

type options struct {
	transport http.RoundTripper
}

// WithTransport sets the base transport used for upstream calls, before the
// per-provider authentication wrapper. Tests use this to mock providers.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// New builds the proxy from configuration: one adapter and authenticating
// transport per provider, mounted on the shared router.
func New(cfg *config.Config, checker ReadinessChecker, opts ...Option) (*Proxy, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	router := chi.NewRouter()
	router.Use(
		Recovery,
		obsmiddleware.RequestIDGeneration,
		obsmiddleware.TraceContextExtraction,
		obsmiddleware.Logging(slog.Default()),
		obsmiddleware.RequestIDPropagation,
		CORS,
		RequestSizeLimit(cfg.MaxRequestBytes),
	)

	// Unknown routes, including unknown provider prefixes, answer with the
	// Claude error envelope rather than the default plain-text 404.
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONClaudeError(r.Context(), w, types.NewErrorResponse(
			types.ErrorTypeNotFound,
			fmt.Sprintf("not found: %s %s", r.Method, r.URL.Path),
		))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONClaudeError(r.Context(), w, types.NewErrorResponse(
			types.ErrorTypeInvalidRequest,
			fmt.Sprintf("method not allowed: %s %s", r.Method, r.URL.Path),
		))
	})

	router.Get("/healthz", livenessHandler())
	router.Get("/readyz", readinessHandler(checker))

	// Deterministic mount order keeps startup logs stable.
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		provider := cfg.Providers[name]

		source, err := tokensource.ForProvider(name, provider.APIKey)
		if err != nil {
			return nil, fmt.Errorf("resolving credentials: %w", err)
		}

		handler := &CreateMessageHandler{
			Adapter: openaichat.New(openaichat.Upstream{
				BaseURL:             provider.BaseURL,
				ModelMap:            provider.Models,
				StopReasonOverrides: provider.StopReasons,
				MaxTokens:           provider.MaxTokens,
				FirstByteTimeout:    provider.FirstByteTimeout,
				ChunkTimeout:        provider.ChunkTimeout,
			}),
			Transport: tokensource.NewTransport(source, o.transport),
		}

		// Every provider is addressable under its own prefix; the default
		// provider also owns the bare routes.
		router.Post("/"+name+"/v1/messages", handler.ServeHTTP)
		router.Get("/"+name+"/v1/models", modelsHandler(name, provider.Models))
		if name == cfg.DefaultProvider {
			router.Post("/v1/messages", handler.ServeHTTP)
			router.Get("/v1/models", modelsHandler(name, provider.Models))
		}
	}

	return &Proxy{handler: router}, nil
}

// ServeHTTP exposes the router directly so tests can drive the full
// middleware stack without a listener.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start binds addr and serves in the background. The returned channel
// receives the terminal serve error, if any; callers stop the server via
// Shutdown.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler: p.handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests up to
// the context deadline.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
