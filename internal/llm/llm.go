// Package llm wraps the language-model provider used for answer generation
// and for auxiliary completions (classification, decomposition, fusion).
package llm

import (
	"context"
	"fmt"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/httpx"
)

// Provider generates text with a language model.
type Provider interface {
	// Generate answers a user question grounded on the given context block.
	// maxTokens <= 0 uses the provider's configured default.
	Generate(ctx context.Context, query, context string, maxTokens int) (string, error)
	// Complete runs a raw prompt without the answering persona. Used for
	// classification, decomposition and fusion prompts.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// NewProvider builds the provider named in the configuration.
func NewProvider(cfg config.LLMConfig, hc *httpx.Client) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIProvider(cfg, hc)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
