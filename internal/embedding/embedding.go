// Package embedding turns text into vectors through a configured provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/httpx"
)

// Provider computes embedding vectors for text.
type Provider interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the vector width this provider produces.
	Dimensions() int
}

// NewProvider builds the provider named in the configuration.
func NewProvider(cfg config.EmbeddingConfig, hc *httpx.Client) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIProvider(cfg, hc)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
