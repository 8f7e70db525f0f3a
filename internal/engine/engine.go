// Package engine orchestrates the query pipeline: classification, optional
// decomposition, per-sub-question answering and final combination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atabot/atabot/internal/answer"
	"github.com/atabot/atabot/internal/cache"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/metrics"
	"github.com/atabot/atabot/internal/query"
	"github.com/atabot/atabot/internal/retriever"
	"github.com/atabot/atabot/internal/schema"
)

// Pipeline stage names used in error attribution and metrics.
const (
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

const (
	defaultTopK     = 3
	defaultMinScore = 0.3
)

// PipelineError attributes an unrecovered provider failure to the stage and
// sub-question where it happened. The pipeline fails fast: no partial
// session is emitted.
type PipelineError struct {
	Stage         string
	QuestionIndex int
	Question      string
	Err           error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed on sub-question %d (%q): %v",
		e.Stage, e.QuestionIndex, e.Question, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Engine is the top-level query orchestrator. One Process call runs one
// pipeline; concurrent calls share no mutable state beyond the learned-cue
// cache and the optional answer cache, both safe for concurrent use.
type Engine struct {
	Classifier *query.Classifier
	Decomposer *query.Decomposer
	Answerer   *answer.Answerer
	Combiner   *answer.Combiner

	Sessions SessionStore
	// Cache is optional; nil disables answer caching.
	Cache    cache.Cache
	CacheTTL time.Duration

	TopK        int
	MinScore    float64
	MaxSessions int
}

// Process answers one raw query against the named collection and returns
// the finished session. sessionID may be empty; topK and minScore fall back
// to the engine defaults when non-positive.
//
// Empty evidence is success with a canned no-data answer. Provider failures
// propagate as *PipelineError and no session is stored.
func (e *Engine) Process(ctx context.Context, userQuery, collection, sessionID string, topK int, minScore float64) (*schema.ChatSession, error) {
	start := time.Now()
	if topK <= 0 {
		if topK = e.TopK; topK <= 0 {
			topK = defaultTopK
		}
	}
	if minScore <= 0 {
		if minScore = e.MinScore; minScore <= 0 {
			minScore = defaultMinScore
		}
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	met := metrics.NewPipelineMetrics(sessionID, userQuery)

	if e.Cache != nil {
		if v, ok := e.Cache.Get(cache.AnswerKey(userQuery, collection, topK, minScore)); ok {
			if cached, ok := v.(*schema.ChatSession); ok {
				session := e.finishSession(sessionID, userQuery, cached.Answer, schema.CloneResults(cached.Evidence), start)
				met.CacheHit = true
				met.Success = true
				met.EvidenceCount = len(session.Evidence)
				met.TotalLatencyMs = time.Since(start).Milliseconds()
				met.Log()
				return session, nil
			}
		}
	}

	logger.Infof("processing query (session %s): %s", sessionID, truncate(userQuery, 100))

	classifyStart := time.Now()
	isComplex := e.Classifier.Classify(ctx, userQuery)
	met.Complex = isComplex
	met.ClassifyLatencyMs = time.Since(classifyStart).Milliseconds()

	questions := []string{userQuery}
	if isComplex {
		questions = e.Decomposer.Decompose(ctx, userQuery)
		logger.Infof("decomposed into %d sub-questions", len(questions))
	}
	met.SubQuestionCount = len(questions)

	subAnswers := make([]schema.SubAnswer, 0, len(questions))
	for i, q := range questions {
		answerStart := time.Now()
		sa, err := e.Answerer.Answer(ctx, q, collection, topK, minScore)
		if err != nil {
			perr := &PipelineError{Stage: stageOf(err), QuestionIndex: i, Question: q, Err: err}
			met.RecordFailure(perr.Stage, i, err)
			met.TotalLatencyMs = time.Since(start).Milliseconds()
			met.Log()
			return nil, perr
		}
		stats := metrics.SubQuestionStats{
			Question:      q,
			Relevant:      len(sa.Evidence),
			NoData:        len(sa.Evidence) == 0,
			AnswerLatency: time.Since(answerStart).Milliseconds(),
		}
		if len(sa.Evidence) > 0 {
			stats.TopScore = sa.Evidence[0].Score
		}
		met.AddSubQuestion(stats)
		subAnswers = append(subAnswers, sa)
	}

	finalText, evidence := e.Combiner.Combine(ctx, subAnswers, userQuery)
	met.CombineMethod = "passthrough"
	if len(subAnswers) > 1 {
		met.CombineMethod = "combined"
	}

	session := e.finishSession(sessionID, userQuery, finalText, evidence, start)

	if e.Cache != nil {
		e.Cache.Set(cache.AnswerKey(userQuery, collection, topK, minScore), session, e.CacheTTL)
	}

	met.Success = true
	met.EvidenceCount = len(evidence)
	met.DeduplicatedCount = totalEvidence(subAnswers) - len(evidence)
	met.TotalLatencyMs = time.Since(start).Milliseconds()
	met.Log()
	logger.Infof("query processed in %.2fs (session %s)", session.ProcessingTime, sessionID)
	return session, nil
}

// finishSession builds the terminal session record and hands it to the
// session store.
func (e *Engine) finishSession(sessionID, userQuery, answerText string, evidence []schema.SearchResult, start time.Time) *schema.ChatSession {
	session := &schema.ChatSession{
		SessionID:      sessionID,
		UserQuery:      userQuery,
		Evidence:       evidence,
		Answer:         answerText,
		CreatedAt:      start,
		ProcessingTime: time.Since(start).Seconds(),
	}
	if e.Sessions != nil {
		e.Sessions.Save(session)
		if e.MaxSessions > 0 {
			if err := e.Sessions.Clean(e.MaxSessions); err != nil {
				logger.Warnf("session cleanup failed: %v", err)
			}
		}
	}
	return session
}

// stageOf maps a typed provider error to its pipeline stage.
func stageOf(err error) string {
	var embedErr *retriever.EmbeddingError
	var retrErr *retriever.RetrievalError
	var genErr *answer.GenerationError
	switch {
	case errors.As(err, &embedErr):
		return StageEmbed
	case errors.As(err, &retrErr):
		return StageRetrieve
	case errors.As(err, &genErr):
		return StageGenerate
	}
	return "pipeline"
}

func totalEvidence(subAnswers []schema.SubAnswer) int {
	n := 0
	for _, sa := range subAnswers {
		n += len(sa.Evidence)
	}
	return n
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
