package schema

import "time"

// Document is a single piece of evidence stored in the vector index.
// Instances are created by the retrieval call that produced them and are
// never mutated by downstream pipeline stages.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Vector    []float32      `json:"vector,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// SearchResult pairs a retrieved document with its relevance score.
// Higher score means more relevant.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// SearchOptions controls a vector search call.
type SearchOptions struct {
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold,omitempty"`
}

// SubAnswer is the result of answering one atomic question: the generated
// text plus the evidence that grounded it. Every evidence item passed the
// configured relevance floor.
type SubAnswer struct {
	Question string         `json:"question"`
	Text     string         `json:"text"`
	Evidence []SearchResult `json:"evidence"`
}

// ChatSession is the terminal artifact of one pipeline run. It is created
// exactly once per Process call and handed to the caller for serialization;
// Evidence contains no two items with the same document ID.
type ChatSession struct {
	SessionID      string         `json:"session_id"`
	UserQuery      string         `json:"user_query"`
	Evidence       []SearchResult `json:"evidence"`
	Answer         string         `json:"answer"`
	CreatedAt      time.Time      `json:"created_at"`
	ProcessingTime float64        `json:"processing_time"`
}

// CloneResults deep-copies a result list so cached copies cannot be
// mutated by callers.
func CloneResults(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i].Score = res.Score
		out[i].Document = CloneDocument(res.Document)
	}
	return out
}

// CloneDocument returns a copy of doc with its own metadata map and vector.
func CloneDocument(doc Document) Document {
	cloned := doc
	if doc.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(doc.Vector) > 0 {
		cloned.Vector = make([]float32, len(doc.Vector))
		copy(cloned.Vector, doc.Vector)
	}
	return cloned
}
