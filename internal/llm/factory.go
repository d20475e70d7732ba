package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a provider based on configuration. An empty provider
// name disables the LLM entirely and returns nil. Local gateways that
// speak the OpenAI API are selected with provider "openai" plus a BaseURL.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", config.Provider)
	}
}
