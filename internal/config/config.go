package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the environment variables read during Load.
// BRIDGE_LISTEN overrides "listen"; nested keys use a double underscore,
// e.g. BRIDGE_PROVIDERS__OPENAI__BASE_URL.
const EnvPrefix = "BRIDGE_"

// Config is the fully resolved proxy configuration. Precedence from lowest
// to highest: built-in defaults, the TOML config file, environment variables.
type Config struct {
	// Listen is the host:port the HTTP server binds to.
	Listen string `koanf:"listen" validate:"required,hostname_port"`

	// DefaultProvider selects the provider serving the unprefixed
	// /v1/messages route. Must name an entry of Providers.
	DefaultProvider string `koanf:"default_provider" validate:"required"`

	// MaxRequestBytes bounds inbound request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes" validate:"gt=0"`

	Providers map[string]Provider `koanf:"providers" validate:"required,min=1,dive"`
}

// Provider describes one OpenAI-compatible upstream endpoint.
type Provider struct {
	// BaseURL is the provider's API root without a trailing slash, e.g.
	// "https://api.openai.com/v1".
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// APIKey is the bearer credential, or one of two directives:
	// "keyring" reads the key stored for this provider via the auth
	// command, "env:NAME" reads the named environment variable. Empty
	// sends no Authorization header, for local servers that need none.
	APIKey string `koanf:"api_key"`

	// MaxTokens, when positive, caps max_tokens on every forwarded request.
	MaxTokens int64 `koanf:"max_tokens" validate:"gte=0"`

	// Models maps Claude model identifiers to the provider's native ones.
	// The reserved "default" entry catches unmapped names.
	Models map[string]string `koanf:"models"`

	// StopReasons overrides entries of the finish_reason translation table,
	// e.g. content_filter = "end_turn".
	StopReasons map[string]string `koanf:"stop_reasons" validate:"dive,oneof=end_turn max_tokens tool_use stop_sequence"`

	// FirstByteTimeout and ChunkTimeout bound streaming stalls. Zero keeps
	// the adapter defaults.
	FirstByteTimeout time.Duration `koanf:"first_byte_timeout"`
	ChunkTimeout     time.Duration `koanf:"chunk_timeout"`
}

// defaults is the baseline configuration applied before any file or
// environment input.
var defaults = map[string]any{
	"listen":            "127.0.0.1:4000",
	"default_provider":  "openai",
	"max_request_bytes": int64(10 << 20),
}

// Load builds the configuration from defaults, the optional TOML file at
// path, and BRIDGE_-prefixed environment variables, then validates the
// result. environ is injectable for tests (pass os.Environ).
func Load(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	envOpt := env.Opt{
		Prefix:      EnvPrefix,
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			// Double underscore separates nesting levels so provider names
			// and field names may themselves contain underscores.
			return strings.ReplaceAll(key, "__", "."), value
		},
	}
	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		return fmt.Errorf("invalid config: default_provider %q has no [providers.%s] entry", c.DefaultProvider, c.DefaultProvider)
	}

	for name, p := range c.Providers {
		if strings.HasSuffix(p.BaseURL, "/") {
			return fmt.Errorf("invalid config: providers.%s.base_url must not end with a slash", name)
		}
	}

	return nil
}
