// Package retriever unifies evidence lookup behind a single search interface.
package retriever

import (
	"context"

	"github.com/atabot/atabot/internal/schema"
)

// Retriever finds candidate evidence for a question in a named collection.
type Retriever interface {
	Type() string
	Search(ctx context.Context, collection, query string, topK int) ([]schema.SearchResult, error)
}

// EmbeddingError marks a failure of the embedding provider. It is surfaced
// to the caller untouched; the pipeline never retries provider calls.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "embedding provider: " + e.Err.Error() }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError marks an unreachable or failing vector index. A missing
// collection is not a RetrievalError: it yields empty results.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return "vector index: " + e.Err.Error() }
func (e *RetrievalError) Unwrap() error { return e.Err }
