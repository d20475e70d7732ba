package llm

import (
	"context"

	"github.com/avasquez/deedscan/internal/model"
)

// Provider defines the interface for model providers. One provider serves
// all three pipeline needs: structured field extraction from page text,
// text extraction from captured page images, and deed summarization.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Complete runs a plain text completion.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ReadImages extracts the text content from an ordered set of page
	// images in a single round trip.
	ReadImages(ctx context.Context, images [][]byte, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and
	// reachable.
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is the input for a text completion.
type CompletionRequest struct {
	// System sets the assistant's instructions.
	System string

	// Prompt is the user content.
	Prompt string

	// Model overrides the configured model for this call.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int
}

// CompletionResponse is the provider's completion output.
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider configuration.
type Config struct {
	// Provider name: "openai" or "" (disabled).
	Provider string

	// Model for text completions.
	Model string

	// VisionModel for image reading; falls back to Model.
	VisionModel string

	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL points at OpenAI-compatible endpoints (local gateways).
	BaseURL string

	// Timeout per API request, seconds.
	Timeout int

	// MaxTokens for response generation.
	MaxTokens int
}

// ConfigFromModel converts model.LLMConfig to llm.Config.
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		VisionModel: c.VisionModel,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  "",
		Timeout:   60,
		MaxTokens: 2000,
	}
}
