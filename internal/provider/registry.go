package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lingotab/lingotab/internal/config"
)

// Registry stores configured provider clients by name.
type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// NewRegistryFromConfig builds clients for every provider with credentials.
// Providers without credentials stay unregistered; their groups receive
// sentinel results instead of failing the run.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	registry := NewRegistry()
	if cfg == nil {
		return registry
	}

	if configured(cfg.OpenAI) {
		_ = registry.Register(NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model))
	}
	if configured(cfg.Gemini) {
		_ = registry.Register(NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model))
	}
	if configured(cfg.Anthropic) {
		_ = registry.Register(NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, cfg.Anthropic.Model))
	}
	return registry
}

// configured treats a bare BaseURL as sufficient: self-hosted
// OpenAI-compatible endpoints often need no key.
func configured(pc config.ProviderConfig) bool {
	return strings.TrimSpace(pc.APIKey) != "" || strings.TrimSpace(pc.BaseURL) != ""
}

// Register adds one client.
func (r *Registry) Register(client Client) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if client == nil {
		return fmt.Errorf("client is nil")
	}
	name := strings.ToLower(strings.TrimSpace(client.Name()))
	if name == "" {
		return fmt.Errorf("client name is required")
	}
	r.clients[name] = client
	return nil
}

// Client resolves a client by provider name; ok is false when the provider
// has no configured client.
func (r *Registry) Client(name string) (Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	return client, ok
}

// Names lists registered provider names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
