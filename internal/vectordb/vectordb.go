// Package vectordb stores documents with their embedding vectors and serves
// similarity search over them. Collections map one-to-one to synced source
// tables.
package vectordb

import (
	"context"
	"fmt"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/schema"
)

// Provider is the vector index behind retrieval and ingestion.
//
// Searching a collection that does not exist returns an empty result, not an
// error: an unsynced table simply has no data yet.
type Provider interface {
	// Search returns the nearest documents to the query vector, most similar
	// first, with similarity scores in [0, 1].
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]schema.SearchResult, error)
	// Upsert writes documents by id, replacing existing entries.
	Upsert(ctx context.Context, collection string, docs []schema.Document) error
	// HasCollection reports whether the collection exists.
	HasCollection(ctx context.Context, collection string) (bool, error)
	// DropCollection removes a collection and its documents. Dropping a
	// missing collection is a no-op.
	DropCollection(ctx context.Context, collection string) error
	// Count reports the number of stored documents.
	Count(ctx context.Context, collection string) (int64, error)
	// Close releases the underlying connection.
	Close() error
}

// NewProvider builds the provider named in the configuration.
func NewProvider(ctx context.Context, cfg config.VectorDBConfig, dimensions int) (Provider, error) {
	switch cfg.Provider {
	case "milvus":
		return newMilvusProvider(ctx, cfg, dimensions)
	case "memory":
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unknown vectordb provider: %s", cfg.Provider)
	}
}
