package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func noEnv() []string { return nil }

const minimalConfig = `
[providers.openai]
base_url = "https://api.openai.com/v1"
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig), noEnv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != "127.0.0.1:4000" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
	if cfg.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q, want openai", cfg.DefaultProvider)
	}
	if cfg.MaxRequestBytes != 10<<20 {
		t.Errorf("MaxRequestBytes = %d, want %d", cfg.MaxRequestBytes, 10<<20)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
listen = "0.0.0.0:8080"
default_provider = "local"
max_request_bytes = 1048576

[providers.local]
base_url = "http://localhost:11434/v1"

[providers.openai]
base_url = "https://api.openai.com/v1"
api_key = "keyring"
max_tokens = 4096
first_byte_timeout = "10s"
chunk_timeout = "45s"

[providers.openai.models]
"claude-sonnet-4-5" = "gpt-test"
default = "gpt-fallback"

[providers.openai.stop_reasons]
content_filter = "end_turn"
`), noEnv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != "0.0.0.0:8080" || cfg.DefaultProvider != "local" {
		t.Errorf("top-level config = %+v", cfg)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("got %d providers, want 2", len(cfg.Providers))
	}

	openai := cfg.Providers["openai"]
	if openai.APIKey != "keyring" || openai.MaxTokens != 4096 {
		t.Errorf("openai provider = %+v", openai)
	}
	if openai.FirstByteTimeout != 10*time.Second || openai.ChunkTimeout != 45*time.Second {
		t.Errorf("timeouts = %v / %v", openai.FirstByteTimeout, openai.ChunkTimeout)
	}
	if openai.Models["claude-sonnet-4-5"] != "gpt-test" || openai.Models["default"] != "gpt-fallback" {
		t.Errorf("models = %+v", openai.Models)
	}
	if openai.StopReasons["content_filter"] != "end_turn" {
		t.Errorf("stop_reasons = %+v", openai.StopReasons)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	environ := func() []string {
		return []string{
			"BRIDGE_LISTEN=127.0.0.1:9999",
			"BRIDGE_PROVIDERS__OPENAI__API_KEY=sk-from-env",
			"UNRELATED=ignored",
		}
	}

	cfg, err := Load(writeConfigFile(t, minimalConfig), environ)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != "127.0.0.1:9999" {
		t.Errorf("Listen = %q, want env override", cfg.Listen)
	}
	if cfg.Providers["openai"].APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want env override", cfg.Providers["openai"].APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), noEnv)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "no providers",
			content: `listen = "127.0.0.1:4000"`,
			wantIn:  "invalid config",
		},
		{
			name: "default provider has no entry",
			content: `
default_provider = "missing"

[providers.openai]
base_url = "https://api.openai.com/v1"
`,
			wantIn: "default_provider",
		},
		{
			name: "unknown stop reason value",
			content: `
[providers.openai]
base_url = "https://api.openai.com/v1"

[providers.openai.stop_reasons]
content_filter = "whatever"
`,
			wantIn: "invalid config",
		},
		{
			name: "trailing slash base url",
			content: `
[providers.openai]
base_url = "https://api.openai.com/v1/"
`,
			wantIn: "must not end with a slash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content), noEnv)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantIn)
			}
		})
	}
}
