// Package tokensource resolves provider credentials into oauth2.TokenSource
// values and authenticating transports.
//
// Providers are configured with an api_key directive that is either a literal
// key, "keyring" for a key stored in the OS keyring, or "env:NAME" for a key
// read from the environment. All three resolve to the same abstraction, so
// the request path never cares where a credential came from:
//
//	source, err := tokensource.ForProvider("openai", cfg.APIKey)
//	transport := tokensource.NewTransport(source, nil)
//	// transport attaches "Authorization: Bearer <key>" to outgoing requests
//
// Keyring-backed sources read the keyring lazily on first use and cache the
// key for the lifetime of the process. Store and Delete back the auth
// command that manages these entries.
package tokensource
