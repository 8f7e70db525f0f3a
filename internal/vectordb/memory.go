package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/atabot/atabot/internal/schema"
)

// MemoryProvider is an in-process vector store. It backs the "memory"
// provider option for local development and tests.
type MemoryProvider struct {
	mu          sync.RWMutex
	collections map[string]map[string]schema.Document
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{collections: make(map[string]map[string]schema.Document)}
}

func (p *MemoryProvider) Close() error { return nil }

func (p *MemoryProvider) HasCollection(_ context.Context, collection string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.collections[collection]
	return ok, nil
}

func (p *MemoryProvider) Upsert(_ context.Context, collection string, docs []schema.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	coll, ok := p.collections[collection]
	if !ok {
		coll = make(map[string]schema.Document)
		p.collections[collection] = coll
	}
	for _, d := range docs {
		coll[d.ID] = schema.CloneDocument(d)
	}
	return nil
}

func (p *MemoryProvider) Search(_ context.Context, collection string, vector []float32, topK int) ([]schema.SearchResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	coll, ok := p.collections[collection]
	if !ok || topK <= 0 {
		return nil, nil
	}
	results := make([]schema.SearchResult, 0, len(coll))
	for _, d := range coll {
		score := cosine(vector, d.Vector)
		if score < 0 {
			score = 0
		}
		results = append(results, schema.SearchResult{Document: schema.CloneDocument(d), Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (p *MemoryProvider) DropCollection(_ context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.collections, collection)
	return nil
}

func (p *MemoryProvider) Count(_ context.Context, collection string) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(len(p.collections[collection])), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
