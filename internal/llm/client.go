package llm

import (
	"fmt"
	"os"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderLocal     = "local"
)

// New builds a client for provider. An empty apiKey is read from
// ANTHROPIC_API_KEY or OPENAI_API_KEY; local servers need none.
func New(provider, apiKey, model, baseURL string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderAnthropic, "claude":
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic: ANTHROPIC_API_KEY not set")
		}
		c := NewAnthropicClient(apiKey, model)
		if baseURL != "" {
			c.WithURL(baseURL)
		}
		return c, nil
	case ProviderOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(apiKey, model, baseURL), nil
	case ProviderLocal:
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return NewOpenAIClient(apiKey, model, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
