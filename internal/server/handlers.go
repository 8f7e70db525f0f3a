package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atabot/atabot/internal/engine"
	"github.com/atabot/atabot/internal/ingest"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/schema"
)

type chatRequest struct {
	Query          string  `json:"query" binding:"required"`
	CollectionName string  `json:"collection_name" binding:"required"`
	TopK           int     `json:"top_k"`
	MinScore       float64 `json:"min_score"`
	SessionID      string  `json:"session_id"`
}

type chatResponse struct {
	Answer         string           `json:"answer"`
	Sources        []sourceDocument `json:"sources"`
	ProcessingTime float64          `json:"processing_time"`
	SessionID      string           `json:"session_id"`
}

type sourceDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := s.engine.Process(c.Request.Context(), req.Query, req.CollectionName, req.SessionID, req.TopK, req.MinScore)
	if err != nil {
		var perr *engine.PipelineError
		if errors.As(err, &perr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":        perr.Error(),
				"stage":        perr.Stage,
				"sub_question": perr.QuestionIndex,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chatResponse{
		Answer:         session.Answer,
		Sources:        toSources(session.Evidence),
		ProcessingTime: session.ProcessingTime,
		SessionID:      session.SessionID,
	})
}

func toSources(evidence []schema.SearchResult) []sourceDocument {
	out := make([]sourceDocument, len(evidence))
	for i, r := range evidence {
		out[i] = sourceDocument{
			ID:       r.Document.ID,
			Content:  r.Document.Content,
			Metadata: r.Document.Metadata,
			Score:    r.Score,
		}
	}
	return out
}

type syncRequest struct {
	SchemaName string `json:"schema_name" binding:"required"`
	TableName  string `json:"table_name" binding:"required"`
}

// syncJob tracks one background table sync.
type syncJob struct {
	Status string             `json:"status"` // "running" | "completed" | "failed"
	Error  string             `json:"error,omitempty"`
	Result *ingest.SyncResult `json:"result,omitempty"`
}

type jobTracker struct {
	mu   sync.RWMutex
	jobs map[string]syncJob
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[string]syncJob)}
}

func (t *jobTracker) set(id string, job syncJob) {
	t.mu.Lock()
	t.jobs[id] = job
	t.mu.Unlock()
}

func (t *jobTracker) get(id string) (syncJob, bool) {
	t.mu.RLock()
	job, ok := t.jobs[id]
	t.mu.RUnlock()
	return job, ok
}

func (s *Server) handleSync(c *gin.Context) {
	if s.syncer == nil || s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no relational source configured"})
		return
	}
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	jobID := uuid.New().String()
	s.jobs.set(jobID, syncJob{Status: "running"})

	// sync runs detached from the request; its lifetime is the process
	go func() {
		result, err := s.syncer.SyncTable(context.Background(), req.SchemaName, req.TableName)
		if err != nil {
			logger.Errorf("sync job %s failed: %v", jobID, err)
			s.jobs.set(jobID, syncJob{Status: "failed", Error: err.Error()})
			return
		}
		s.jobs.set(jobID, syncJob{Status: "completed", Result: result})
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":          "started",
		"job_id":          jobID,
		"collection_name": ingest.CollectionName(req.SchemaName, req.TableName),
	})
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleListSchemas(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no relational source configured"})
		return
	}
	schemas, err := s.db.Schemas(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schemas)
}

func (s *Server) handleSchemaInfo(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no relational source configured"})
		return
	}
	name := c.Param("schema_name")
	tables, err := s.db.Tables(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schema_name":  name,
		"tables":       tables,
		"total_tables": len(tables),
	})
}

func (s *Server) handleListSessions(c *gin.Context) {
	var query struct {
		Offset int `form:"offset"`
		Limit  int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	c.JSON(http.StatusOK, s.sessions.ListRange(query.Offset, query.Limit))
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, ok := s.sessions.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("session_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}

	if s.db != nil {
		if _, err := s.db.Schemas(c.Request.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	if _, err := s.store.HasCollection(c.Request.Context(), "healthcheck"); err != nil {
		checks["vector_store"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["vector_store"] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
