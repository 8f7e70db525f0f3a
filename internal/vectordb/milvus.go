package vectordb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/schema"
)

const (
	fieldID       = "id"
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldVector   = "vector"

	maxIDLength      = 64
	maxContentLength = 65535
)

type milvusProvider struct {
	c    client.Client
	dims int
}

func newMilvusProvider(ctx context.Context, cfg config.VectorDBConfig, dims int) (*milvusProvider, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", addr, err)
	}
	logger.Infof("connected to milvus at %s", addr)
	return &milvusProvider{c: c, dims: dims}, nil
}

func (p *milvusProvider) Close() error { return p.c.Close() }

func (p *milvusProvider) HasCollection(ctx context.Context, collection string) (bool, error) {
	has, err := p.c.HasCollection(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", collection, err)
	}
	return has, nil
}

func (p *milvusProvider) ensureCollection(ctx context.Context, collection string) error {
	has, err := p.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	sch := &entity.Schema{
		CollectionName: collection,
		Fields: []*entity.Field{
			entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
				WithIsPrimaryKey(true).WithMaxLength(maxIDLength),
			entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxContentLength),
			entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeJSON),
			entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(p.dims)),
		},
	}
	if err := p.c.CreateCollection(ctx, sch, 1); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err != nil {
		return fmt.Errorf("build hnsw index: %w", err)
	}
	if err := p.c.CreateIndex(ctx, collection, fieldVector, idx, false); err != nil {
		return fmt.Errorf("create index on %s: %w", collection, err)
	}
	if err := p.c.LoadCollection(ctx, collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", collection, err)
	}
	logger.Infof("created milvus collection %s (dim=%d)", collection, p.dims)
	return nil
}

func (p *milvusProvider) Upsert(ctx context.Context, collection string, docs []schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := p.ensureCollection(ctx, collection); err != nil {
		return err
	}
	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	metas := make([][]byte, len(docs))
	vecs := make([][]float32, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		contents[i] = d.Content
		m, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", d.ID, err)
		}
		metas[i] = m
		vecs[i] = d.Vector
	}
	_, err := p.c.Upsert(ctx, collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnJSONBytes(fieldMetadata, metas),
		entity.NewColumnFloatVector(fieldVector, p.dims, vecs),
	)
	if err != nil {
		return fmt.Errorf("upsert %d docs into %s: %w", len(docs), collection, err)
	}
	return nil
}

func (p *milvusProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]schema.SearchResult, error) {
	has, err := p.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search param: %w", err)
	}
	results, err := p.c.Search(ctx, collection, nil, "",
		[]string{fieldID, fieldContent, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	var out []schema.SearchResult
	for _, res := range results {
		idCol, _ := res.Fields.GetColumn(fieldID).(*entity.ColumnVarChar)
		contentCol, _ := res.Fields.GetColumn(fieldContent).(*entity.ColumnVarChar)
		metaCol, _ := res.Fields.GetColumn(fieldMetadata).(*entity.ColumnJSONBytes)
		for i := 0; i < res.ResultCount; i++ {
			doc := schema.Document{}
			if idCol != nil {
				doc.ID, _ = idCol.ValueByIdx(i)
			}
			if contentCol != nil {
				doc.Content, _ = contentCol.ValueByIdx(i)
			}
			if metaCol != nil {
				if raw, err := metaCol.ValueByIdx(i); err == nil && len(raw) > 0 {
					_ = json.Unmarshal(raw, &doc.Metadata)
				}
			}
			score := float64(res.Scores[i])
			if score < 0 {
				score = 0
			}
			out = append(out, schema.SearchResult{Document: doc, Score: score})
		}
	}
	return out, nil
}

func (p *milvusProvider) DropCollection(ctx context.Context, collection string) error {
	has, err := p.HasCollection(ctx, collection)
	if err != nil || !has {
		return err
	}
	if err := p.c.DropCollection(ctx, collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}

func (p *milvusProvider) Count(ctx context.Context, collection string) (int64, error) {
	has, err := p.HasCollection(ctx, collection)
	if err != nil || !has {
		return 0, err
	}
	stats, err := p.c.GetCollectionStatistics(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("stats for %s: %w", collection, err)
	}
	var n int64
	if v, ok := stats["row_count"]; ok {
		_, _ = fmt.Sscanf(v, "%d", &n)
	}
	return n, nil
}
