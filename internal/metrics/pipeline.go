// Package metrics records one structured log line per pipeline run.
package metrics

import (
	"encoding/json"
	"time"

	"github.com/atabot/atabot/internal/logger"
)

// PipelineMetrics captures the full trace of one query through the engine.
type PipelineMetrics struct {
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`

	// classification and decomposition
	Complex           bool  `json:"complex"`
	ClassifyLatencyMs int64 `json:"classify_latency_ms,omitempty"`
	SubQuestionCount  int   `json:"sub_question_count"`

	// per-sub-question answering
	SubQuestions []SubQuestionStats `json:"sub_questions,omitempty"`

	// combination
	EvidenceCount      int    `json:"evidence_count"`
	DeduplicatedCount  int    `json:"deduplicated_count,omitempty"`
	CombineMethod      string `json:"combine_method,omitempty"` // "passthrough" | "combined"
	CacheHit           bool   `json:"cache_hit,omitempty"`
	TotalLatencyMs     int64  `json:"total_latency_ms"`
	Success            bool   `json:"success"`
	FailedStage        string `json:"failed_stage,omitempty"`
	FailedSubQuestion  int    `json:"failed_sub_question,omitempty"`
	ErrorMsg           string `json:"error_msg,omitempty"`
}

// SubQuestionStats describes one sub-question's retrieval and generation.
type SubQuestionStats struct {
	Question      string  `json:"question"`
	Relevant      int     `json:"relevant"`
	TopScore      float64 `json:"top_score,omitempty"`
	NoData        bool    `json:"no_data,omitempty"`
	AnswerLatency int64   `json:"answer_latency_ms"`
}

// NewPipelineMetrics starts a metrics record for one query.
func NewPipelineMetrics(sessionID, query string) *PipelineMetrics {
	return &PipelineMetrics{
		SessionID: sessionID,
		Query:     query,
		Timestamp: time.Now(),
	}
}

// AddSubQuestion appends one sub-question's stats.
func (m *PipelineMetrics) AddSubQuestion(stats SubQuestionStats) {
	m.SubQuestions = append(m.SubQuestions, stats)
}

// RecordFailure attributes a failed run to its stage and sub-question.
func (m *PipelineMetrics) RecordFailure(stage string, subQuestion int, err error) {
	m.Success = false
	m.FailedStage = stage
	m.FailedSubQuestion = subQuestion
	if err != nil {
		m.ErrorMsg = err.Error()
	}
}

// Log emits the record as one JSON log line.
func (m *PipelineMetrics) Log() {
	data, err := json.Marshal(m)
	if err != nil {
		logger.Warnf("metrics: marshal failed: %v", err)
		return
	}
	logger.Infof("[PIPELINE_METRICS] %s", string(data))
}
