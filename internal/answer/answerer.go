package answer

import (
	"context"

	"github.com/atabot/atabot/internal/language"
	"github.com/atabot/atabot/internal/llm"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/retriever"
	"github.com/atabot/atabot/internal/schema"
)

// GenerationError marks a failure of the language-model provider during
// answer synthesis. It propagates to the caller; the pipeline never retries
// provider calls.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "language model: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

const (
	noDataIndonesian = "Maaf, saya tidak menemukan data yang relevan untuk menjawab pertanyaan Anda. Pastikan data sudah di-sync ke sistem."
	noDataEnglish    = "Sorry, I could not find any relevant data to answer your question. Make sure the data has been synced into the system."
)

// noDataText returns the canned no-data response in the question's
// language. Finding nothing is a normal outcome, not an error.
func noDataText(detect language.Detector, question string) string {
	if detect != nil && detect.Detect(question) == language.English {
		return noDataEnglish
	}
	return noDataIndonesian
}

// Answerer runs the retrieve, filter, generate, validate sequence for
// exactly one atomic question.
type Answerer struct {
	Retriever retriever.Retriever
	LLM       llm.Provider
	Detect    language.Detector
	MaxTokens int
}

// Answer produces the grounded answer for one question. Provider failures
// (embedding, retrieval, generation) surface as typed errors attributed to
// their stage; empty evidence is success with the canned no-data text.
func (a *Answerer) Answer(ctx context.Context, question, collection string, topK int, minScore float64) (schema.SubAnswer, error) {
	results, err := a.Retriever.Search(ctx, collection, question, topK)
	if err != nil {
		return schema.SubAnswer{}, err
	}
	relevant := FilterByScore(results, minScore)
	if len(relevant) == 0 {
		logger.Warnf("no relevant evidence for question: %s", question)
		return schema.SubAnswer{
			Question: question,
			Text:     noDataText(a.Detect, question),
		}, nil
	}
	contextBlock := BuildContext(relevant)
	reply, err := a.LLM.Generate(ctx, question, contextBlock, a.MaxTokens)
	if err != nil {
		return schema.SubAnswer{}, &GenerationError{Err: err}
	}
	return schema.SubAnswer{
		Question: question,
		Text:     Validate(reply, question),
		Evidence: relevant,
	}, nil
}
