package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atabot/atabot/internal/database"
	"github.com/atabot/atabot/internal/schema"
	"github.com/atabot/atabot/internal/vectordb"
)

// fakeDB serves canned rows.
type fakeDB struct {
	rows []map[string]any
	err  error
}

func (f *fakeDB) Schemas(context.Context) ([]string, error)                 { return []string{"public"}, nil }
func (f *fakeDB) Tables(context.Context, string) ([]database.Table, error) { return nil, nil }
func (f *fakeDB) Close()                                                   {}

func (f *fakeDB) TableData(_ context.Context, _, _ string, _ int) ([]map[string]any, error) {
	return f.rows, f.err
}

// fakeEmbedder returns constant-width vectors.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// flakyStore fails the first n upserts, then delegates to a memory store.
type flakyStore struct {
	*vectordb.MemoryProvider
	failures int
}

func (f *flakyStore) Upsert(ctx context.Context, collection string, docs []schema.Document) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient index error")
	}
	return f.MemoryProvider.Upsert(ctx, collection, docs)
}

func TestSyncer_SyncTable(t *testing.T) {
	db := &fakeDB{rows: []map[string]any{
		{"id": 1, "nama_produk": "laptop", "stok": 42},
		{"id": 2, "nama_produk": "mouse", "stok": 7},
	}}
	store := vectordb.NewMemoryProvider()
	s := &Syncer{DB: db, Embed: &fakeEmbedder{}, Store: store}

	res, err := s.SyncTable(context.Background(), "public", "inventaris")
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, 2, res.ProcessedItems)
	assert.Equal(t, "public_inventaris", res.CollectionName)

	n, err := store.Count(context.Background(), "public_inventaris")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSyncer_EmptyTableCompletes(t *testing.T) {
	s := &Syncer{DB: &fakeDB{}, Embed: &fakeEmbedder{}, Store: vectordb.NewMemoryProvider()}
	res, err := s.SyncTable(context.Background(), "public", "kosong")
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)
	assert.Zero(t, res.ProcessedItems)
}

func TestSyncer_RetriesTransientUpsertFailures(t *testing.T) {
	db := &fakeDB{rows: []map[string]any{{"id": 1, "nama": "laptop"}}}
	store := &flakyStore{MemoryProvider: vectordb.NewMemoryProvider(), failures: 2}
	s := &Syncer{DB: db, Embed: &fakeEmbedder{}, Store: store, RetryAttempts: 3}

	res, err := s.SyncTable(context.Background(), "public", "inventaris")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProcessedItems)
}

func TestSyncer_ResyncKeepsStableIDs(t *testing.T) {
	db := &fakeDB{rows: []map[string]any{{"id": 1, "stok": 42}}}
	store := vectordb.NewMemoryProvider()
	s := &Syncer{DB: db, Embed: &fakeEmbedder{}, Store: store}
	ctx := context.Background()

	_, err := s.SyncTable(ctx, "public", "inventaris")
	require.NoError(t, err)
	db.rows = []map[string]any{{"id": 1, "stok": 40}}
	_, err = s.SyncTable(ctx, "public", "inventaris")
	require.NoError(t, err)

	n, err := store.Count(ctx, "public_inventaris")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "same primary key must overwrite, not duplicate")
}

func TestSearchableText(t *testing.T) {
	row := map[string]any{
		"nama_produk": "laptop",
		"stok":        42,
		"catatan":     nil,
		"_internal":   "x",
	}
	got := SearchableText(row, "inventaris")
	if !strings.HasPrefix(got, "Data dari tabel inventaris:") {
		t.Errorf("missing table header: %q", got)
	}
	assert.Contains(t, got, "Nama Produk: laptop")
	assert.Contains(t, got, "Stok: 42")
	assert.NotContains(t, got, "catatan")
	assert.NotContains(t, got, "_internal")
}

func TestFindPrimaryKey(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]any
		want string
	}{
		{"plain id", map[string]any{"id": 1, "nama": "x"}, "id"},
		{"uuid", map[string]any{"uuid": "u", "nama": "x"}, "uuid"},
		{"suffix id", map[string]any{"produk_id": 1, "nama": "x"}, "produk_id"},
		{"no key falls back to first column", map[string]any{"nama": "x", "stok": 1}, "nama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findPrimaryKey(tt.row))
		})
	}
}
