package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/atabot/atabot/internal/language"
	"github.com/atabot/atabot/internal/llm"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/schema"
)

// Combiner merges per-sub-question answers into one final response and one
// deduplicated evidence list.
type Combiner struct {
	LLM    llm.Provider
	Detect language.Detector
}

const fusePromptFmt = `Gabungkan jawaban-jawaban berikut menjadi SATU jawaban yang utuh dan alami untuk pertanyaan asli.
Pertahankan semua angka dan fakta. Jawab dalam bahasa pertanyaan asli, tanpa menyebut proses penggabungan.

Pertanyaan asli: "%s"

Jawaban-jawaban:
%s`

// Combine returns the final answer text and the evidence across all
// sub-answers deduplicated by id, first occurrence winning, in sub-question
// order. A single sub-answer passes through unchanged. Fusion failures fall
// back to a deterministic numbered template and never abort the pipeline.
func (c *Combiner) Combine(ctx context.Context, subAnswers []schema.SubAnswer, originalQuestion string) (string, []schema.SearchResult) {
	evidence := dedupeEvidence(subAnswers)
	if len(subAnswers) == 0 {
		return noDataText(c.Detect, originalQuestion), evidence
	}
	if len(subAnswers) == 1 {
		return subAnswers[0].Text, evidence
	}

	distinct := distinctTexts(subAnswers)
	if len(distinct) == 1 {
		return distinct[0], evidence
	}

	numbered := make([]string, len(distinct))
	for i, text := range distinct {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, text)
	}
	if c.LLM != nil {
		fused, err := c.LLM.Complete(ctx, fmt.Sprintf(fusePromptFmt, originalQuestion, strings.Join(numbered, "\n")), 0)
		if err == nil {
			fused = strings.TrimSpace(fused)
			if fused != "" {
				return fused, evidence
			}
		} else {
			logger.Warnf("combiner: fusion call failed, using template: %v", err)
		}
	}
	return templateCombine(c.Detect, originalQuestion, numbered), evidence
}

// templateCombine renders the deterministic fallback: a language-matched
// introductory clause followed by the numbered distinct answers.
func templateCombine(detect language.Detector, originalQuestion string, numbered []string) string {
	intro := fmt.Sprintf("Mengenai '%s':", originalQuestion)
	if detect != nil && detect.Detect(originalQuestion) == language.English {
		intro = fmt.Sprintf("Regarding '%s':", originalQuestion)
	}
	return intro + "\n" + strings.Join(numbered, "\n")
}

// distinctTexts drops text-identical duplicate answers, keeping first
// occurrences in encounter order.
func distinctTexts(subAnswers []schema.SubAnswer) []string {
	seen := make(map[string]struct{}, len(subAnswers))
	out := make([]string, 0, len(subAnswers))
	for _, sa := range subAnswers {
		if _, dup := seen[sa.Text]; dup {
			continue
		}
		seen[sa.Text] = struct{}{}
		out = append(out, sa.Text)
	}
	return out
}

// dedupeEvidence concatenates evidence in sub-question order and removes
// duplicate ids, first occurrence winning.
func dedupeEvidence(subAnswers []schema.SubAnswer) []schema.SearchResult {
	seen := make(map[string]struct{})
	var out []schema.SearchResult
	for _, sa := range subAnswers {
		for _, r := range sa.Evidence {
			if _, dup := seen[r.Document.ID]; dup {
				continue
			}
			seen[r.Document.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
