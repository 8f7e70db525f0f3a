package retriever

import (
	"context"

	"github.com/atabot/atabot/internal/embedding"
	"github.com/atabot/atabot/internal/schema"
	"github.com/atabot/atabot/internal/vectordb"
)

// VectorRetriever implements Retriever over an embedding provider and a
// vector store.
type VectorRetriever struct {
	Embed embedding.Provider
	Store vectordb.Provider
	TopK  int
}

func (r *VectorRetriever) Type() string { return "vector" }

func (r *VectorRetriever) Search(ctx context.Context, collection, query string, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		if r.TopK > 0 {
			topK = r.TopK
		} else {
			topK = 3
		}
	}
	vec, err := r.Embed.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	results, err := r.Store.Search(ctx, collection, vec, topK)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}
	return results, nil
}
