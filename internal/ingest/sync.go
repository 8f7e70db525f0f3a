// Package ingest synchronizes relational tables into the vector index. Each
// row becomes one searchable document in the table's collection.
package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/atabot/atabot/internal/database"
	"github.com/atabot/atabot/internal/embedding"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/schema"
	"github.com/atabot/atabot/internal/vectordb"
)

const (
	defaultBatchSize     = 64
	defaultRetryAttempts = 3
)

// SyncResult reports one finished table sync.
type SyncResult struct {
	Status          string  `json:"status"`
	ProcessedItems  int     `json:"processed_items"`
	CollectionName  string  `json:"collection_name"`
	DurationSeconds float64 `json:"duration"`
}

// Syncer reads rows, embeds them in batches and upserts the documents.
// Upserts retry with backoff; sync runs in the background, so a transient
// index hiccup should not force a full re-read of the table.
type Syncer struct {
	DB    database.Introspector
	Embed embedding.Provider
	Store vectordb.Provider

	BatchSize     int
	RetryAttempts int
	// RowLimit caps rows read per sync; 0 reads the whole table.
	RowLimit int
}

// CollectionName derives the vector collection for a table.
func CollectionName(schemaName, tableName string) string {
	return schemaName + "_" + tableName
}

// SyncTable indexes one table. An empty table completes with zero items.
func (s *Syncer) SyncTable(ctx context.Context, schemaName, tableName string) (*SyncResult, error) {
	start := time.Now()
	collection := CollectionName(schemaName, tableName)
	logger.Infof("starting sync for %s.%s", schemaName, tableName)

	rows, err := s.DB.TableData(ctx, schemaName, tableName, s.RowLimit)
	if err != nil {
		return nil, fmt.Errorf("read table %s.%s: %w", schemaName, tableName, err)
	}
	if len(rows) == 0 {
		logger.Warnf("no data found in %s.%s", schemaName, tableName)
		return &SyncResult{Status: "completed", CollectionName: collection}, nil
	}

	docs, err := s.prepareDocuments(ctx, rows, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	attempts := s.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	for i := 0; i < len(docs); i += batch {
		end := i + batch
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[i:end]
		err := retry.Do(
			func() error { return s.Store.Upsert(ctx, collection, chunk) },
			retry.Attempts(uint(attempts)),
			retry.Delay(100*time.Millisecond),
			retry.MaxDelay(2*time.Second),
			retry.Context(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("upsert into %s: %w", collection, err)
		}
	}

	duration := time.Since(start).Seconds()
	logger.Infof("sync completed for %s: %d documents in %.2fs", collection, len(docs), duration)
	return &SyncResult{
		Status:          "completed",
		ProcessedItems:  len(docs),
		CollectionName:  collection,
		DurationSeconds: duration,
	}, nil
}

func (s *Syncer) prepareDocuments(ctx context.Context, rows []map[string]any, schemaName, tableName string) ([]schema.Document, error) {
	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = SearchableText(row, tableName)
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batch {
		end := i + batch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := s.Embed.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch at offset %d: %w", i, err)
		}
		vectors = append(vectors, vecs...)
		if i > 0 && i%(batch*5) == 0 {
			logger.Infof("embedded %d/%d rows of %s.%s", i, len(texts), schemaName, tableName)
		}
	}

	now := time.Now()
	docs := make([]schema.Document, len(rows))
	primaryKey := findPrimaryKey(rows[0])
	for i, row := range rows {
		metadata := make(map[string]any, len(row)+2)
		for k, v := range row {
			metadata[k] = v
		}
		metadata["_schema"] = schemaName
		metadata["_table"] = tableName

		docs[i] = schema.Document{
			ID:        documentID(row, primaryKey, texts[i]),
			Content:   texts[i],
			Metadata:  metadata,
			Vector:    vectors[i],
			CreatedAt: now,
		}
	}
	return docs, nil
}

// findPrimaryKey guesses the identifying column of a row: id-like names
// first, then any *_id column, then the first column.
func findPrimaryKey(row map[string]any) string {
	var first string
	for key := range row {
		if first == "" || key < first {
			first = key
		}
		lower := strings.ToLower(key)
		if lower == "id" || lower == "uuid" || lower == "guid" {
			return key
		}
	}
	for key := range row {
		if strings.HasSuffix(strings.ToLower(key), "_id") {
			return key
		}
	}
	return first
}

// documentID hashes the primary key value, or the whole text when the row
// has no usable key, so re-syncs overwrite instead of duplicating.
func documentID(row map[string]any, primaryKey, text string) string {
	seed := text
	if v, ok := row[primaryKey]; ok && v != nil {
		if s := fmt.Sprintf("%v", v); s != "" {
			seed = s
		}
	}
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// SearchableText renders one row as the indexed text: a table header
// followed by "Field: value" pairs. Private columns (underscore prefix) and
// nulls are skipped; keys are sorted for deterministic output.
func SearchableText(row map[string]any, tableName string) string {
	parts := []string{fmt.Sprintf("Data dari tabel %s:", tableName)}
	for _, key := range sortedKeys(row) {
		v := row[key]
		if v == nil || strings.HasPrefix(key, "_") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", fieldName(key), v))
	}
	return strings.Join(parts, ". ")
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fieldName turns snake_case column names into titled words.
func fieldName(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
