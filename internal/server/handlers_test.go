package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atabot/atabot/internal/answer"
	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/database"
	"github.com/atabot/atabot/internal/engine"
	"github.com/atabot/atabot/internal/ingest"
	"github.com/atabot/atabot/internal/language"
	"github.com/atabot/atabot/internal/query"
	"github.com/atabot/atabot/internal/retriever"
	"github.com/atabot/atabot/internal/schema"
	"github.com/atabot/atabot/internal/vectordb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedEmbedder struct{}

func (fixedEmbedder) Dimensions() int { return 2 }

func (fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type cannedLLM struct {
	generateReply string
	generateErr   error
}

func (c *cannedLLM) Complete(_ context.Context, prompt string, _ int) (string, error) {
	if strings.HasPrefix(prompt, "Apakah pertanyaan") {
		return "tidak", nil
	}
	return "", errors.New("unexpected prompt")
}

func (c *cannedLLM) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	return c.generateReply, c.generateErr
}

type stubDB struct {
	rows    []map[string]any
	schemas []string
}

func (s *stubDB) Schemas(context.Context) ([]string, error) { return s.schemas, nil }
func (s *stubDB) Close()                                    {}

func (s *stubDB) Tables(_ context.Context, schemaName string) ([]database.Table, error) {
	return []database.Table{{Schema: schemaName, Name: "inventaris", RowCount: int64(len(s.rows))}}, nil
}

func (s *stubDB) TableData(_ context.Context, _, _ string, _ int) ([]map[string]any, error) {
	return s.rows, nil
}

func newTestServer(t *testing.T, llm *cannedLLM) (*Server, *vectordb.MemoryProvider) {
	t.Helper()
	store := vectordb.NewMemoryProvider()
	require.NoError(t, store.Upsert(context.Background(), "public_inventaris", []schema.Document{
		{ID: "laptop", Content: "laptop: 42 unit", Vector: []float32{1, 0}},
	}))
	detect := language.LexicalDetector{}
	eng := &engine.Engine{
		Classifier: &query.Classifier{LLM: llm},
		Decomposer: &query.Decomposer{LLM: llm},
		Answerer: &answer.Answerer{
			Retriever: &retriever.VectorRetriever{Embed: fixedEmbedder{}, Store: store},
			LLM:       llm,
			Detect:    detect,
		},
		Combiner: &answer.Combiner{LLM: llm, Detect: detect},
		Sessions: engine.NewMemSessionStore(),
		TopK:     3,
		MinScore: 0.3,
	}
	db := &stubDB{
		schemas: []string{"public"},
		rows:    []map[string]any{{"id": 1, "nama": "laptop", "stok": 42}},
	}
	syncer := &ingest.Syncer{DB: db, Embed: fixedEmbedder{}, Store: store}
	return New(config.ServerConfig{}, eng, syncer, db, store), store
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func getPath(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestChatEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{generateReply: "Stok laptop 42 unit."})
	w := postJSON(t, s, "/api/v1/chat", gin.H{
		"query":           "Berapa stok laptop?",
		"collection_name": "public_inventaris",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Stok laptop 42 unit.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "laptop", resp.Sources[0].ID)
	assert.NotEmpty(t, resp.SessionID)
}

func TestChatEndpoint_ValidatesRequest(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{})
	w := postJSON(t, s, "/api/v1/chat", gin.H{"query": "tanpa koleksi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatEndpoint_ProviderFailureIsBadGateway(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{generateErr: errors.New("upstream 500")})
	w := postJSON(t, s, "/api/v1/chat", gin.H{
		"query":           "Berapa stok laptop?",
		"collection_name": "public_inventaris",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "generate", body["stage"])
}

func TestSyncEndpoint(t *testing.T) {
	s, store := newTestServer(t, &cannedLLM{})
	w := postJSON(t, s, "/api/v1/sync", gin.H{"schema_name": "public", "table_name": "produk"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	jobID, _ := resp["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "public_produk", resp["collection_name"])

	// the job runs in the background; poll until it finishes
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = getPath(t, s, "/api/v1/sync/status/"+jobID)
		require.Equal(t, http.StatusOK, w.Code)
		var job syncJob
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
		if job.Status != "running" {
			require.Equal(t, "completed", job.Status, job.Error)
			break
		}
		require.True(t, time.Now().Before(deadline), "sync job did not finish")
		time.Sleep(10 * time.Millisecond)
	}

	n, err := store.Count(context.Background(), "public_produk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSyncStatus_UnknownJob(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{})
	w := getPath(t, s, "/api/v1/sync/status/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaEndpoints(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{})

	w := getPath(t, s, "/api/v1/schema")
	require.Equal(t, http.StatusOK, w.Code)
	var schemas []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schemas))
	assert.Equal(t, []string{"public"}, schemas)

	w = getPath(t, s, "/api/v1/schema/public")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "public", info["schema_name"])
	assert.Equal(t, float64(1), info["total_tables"])
}

func TestSessionEndpoints(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{generateReply: "Stok laptop 42 unit."})
	w := postJSON(t, s, "/api/v1/chat", gin.H{
		"query":           "Berapa stok laptop?",
		"collection_name": "public_inventaris",
		"session_id":      "sess-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = getPath(t, s, "/api/v1/sessions/sess-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = getPath(t, s, "/api/v1/sessions?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/sess-1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w = getPath(t, s, "/api/v1/sessions/sess-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, &cannedLLM{})

	w := getPath(t, s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])

	assert.Equal(t, http.StatusOK, getPath(t, s, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, getPath(t, s, "/health/live").Code)
}
