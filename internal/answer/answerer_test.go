package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atabot/atabot/internal/language"
	"github.com/atabot/atabot/internal/schema"
)

// stubRetriever returns canned results or a canned error.
type stubRetriever struct {
	results []schema.SearchResult
	err     error
}

func (s *stubRetriever) Type() string { return "stub" }

func (s *stubRetriever) Search(_ context.Context, _, _ string, _ int) ([]schema.SearchResult, error) {
	return s.results, s.err
}

// stubLLM replies with a fixed generation or error; Complete echoes the
// same behavior.
type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) Complete(_ context.Context, _ string, _ int) (string, error) {
	return s.reply, s.err
}

func result(id string, score float64) schema.SearchResult {
	return schema.SearchResult{
		Document: schema.Document{ID: id, Content: "content " + id},
		Score:    score,
	}
}

func TestAnswerer_GroundedAnswer(t *testing.T) {
	a := &Answerer{
		Retriever: &stubRetriever{results: []schema.SearchResult{result("a", 0.9), result("b", 0.5)}},
		LLM:       &stubLLM{reply: "Stok laptop saat ini 42 unit"},
		Detect:    language.LexicalDetector{},
	}
	sa, err := a.Answer(context.Background(), "Berapa stok laptop?", "items", 3, 0.3)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if sa.Text != "Stok laptop saat ini 42 unit." {
		t.Errorf("unexpected answer text: %q", sa.Text)
	}
	if len(sa.Evidence) != 2 {
		t.Errorf("expected 2 evidence items, got %d", len(sa.Evidence))
	}
}

func TestAnswerer_RelevanceFloor(t *testing.T) {
	// everything scores below the floor: success with the canned no-data
	// text and empty evidence, never an ungrounded generation
	a := &Answerer{
		Retriever: &stubRetriever{results: []schema.SearchResult{result("a", 0.2), result("b", 0.1)}},
		LLM:       &stubLLM{err: errors.New("must not be called")},
		Detect:    language.LexicalDetector{},
	}
	sa, err := a.Answer(context.Background(), "Berapa stok laptop?", "items", 3, 0.3)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if len(sa.Evidence) != 0 {
		t.Errorf("expected empty evidence, got %d items", len(sa.Evidence))
	}
	if !strings.Contains(sa.Text, "tidak menemukan data yang relevan") {
		t.Errorf("expected canned no-data text, got %q", sa.Text)
	}
}

func TestAnswerer_NoDataTextMatchesLanguage(t *testing.T) {
	a := &Answerer{
		Retriever: &stubRetriever{},
		LLM:       &stubLLM{},
		Detect:    language.LexicalDetector{},
	}
	sa, err := a.Answer(context.Background(), "Who is the CEO of the company?", "items", 3, 0.3)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if !strings.Contains(sa.Text, "could not find any relevant data") {
		t.Errorf("expected English no-data text, got %q", sa.Text)
	}
}

func TestAnswerer_GenerationErrorPropagates(t *testing.T) {
	a := &Answerer{
		Retriever: &stubRetriever{results: []schema.SearchResult{result("a", 0.9)}},
		LLM:       &stubLLM{err: errors.New("upstream 500")},
	}
	_, err := a.Answer(context.Background(), "Berapa stok laptop?", "items", 3, 0.3)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestAnswerer_RetrieverErrorPropagates(t *testing.T) {
	a := &Answerer{
		Retriever: &stubRetriever{err: errors.New("index unreachable")},
		LLM:       &stubLLM{reply: "x"},
	}
	_, err := a.Answer(context.Background(), "Berapa stok laptop?", "items", 3, 0.3)
	if err == nil {
		t.Fatal("expected retrieval error to propagate")
	}
}
