package tokensource

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// keyringService is the OS keyring service name under which provider API
// keys are stored. The account name is the provider name from configuration.
const keyringService = "claude-bridge"

// Static returns a token source for a literal API key.
func Static(apiKey string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
}

// Keyring returns a token source backed by the OS keyring entry for the
// given provider. The keyring is consulted lazily on first use; because API
// keys carry no expiry, the caching wrapper never re-reads it afterwards.
func Keyring(provider string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &keyringSource{provider: provider})
}

type keyringSource struct {
	provider string
}

func (s *keyringSource) Token() (*oauth2.Token, error) {
	secret, err := keyring.Get(keyringService, s.provider)
	if err != nil {
		return nil, fmt.Errorf("reading keyring entry for provider %q: %w (run 'auth set %s' to store a key)", s.provider, err, s.provider)
	}
	return &oauth2.Token{AccessToken: secret}, nil
}

// ForProvider resolves the api_key configuration directive of a provider
// into a token source. An empty directive yields a nil source, meaning no
// Authorization header is attached.
func ForProvider(name, directive string) (oauth2.TokenSource, error) {
	switch {
	case directive == "":
		return nil, nil
	case directive == "keyring":
		return Keyring(name), nil
	case strings.HasPrefix(directive, "env:"):
		envVar := strings.TrimPrefix(directive, "env:")
		value := os.Getenv(envVar)
		if value == "" {
			return nil, fmt.Errorf("provider %q: environment variable %s is not set", name, envVar)
		}
		return Static(value), nil
	default:
		return Static(directive), nil
	}
}

// NewTransport wraps base with bearer authentication from source. A nil
// source returns base unchanged; a nil base falls back to the default
// transport.
func NewTransport(source oauth2.TokenSource, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if source == nil {
		return base
	}
	return &oauth2.Transport{Source: source, Base: base}
}

// Store persists a provider's API key in the OS keyring.
func Store(provider, apiKey string) error {
	if err := keyring.Set(keyringService, provider, apiKey); err != nil {
		return fmt.Errorf("storing keyring entry for provider %q: %w", provider, err)
	}
	return nil
}

// Delete removes a provider's API key from the OS keyring.
func Delete(provider string) error {
	if err := keyring.Delete(keyringService, provider); err != nil {
		return fmt.Errorf("deleting keyring entry for provider %q: %w", provider, err)
	}
	return nil
}
