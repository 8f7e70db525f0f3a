package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/atabot/atabot/internal/llm"
	"github.com/atabot/atabot/internal/logger"
)

// minFragmentRunes drops fragments too short to stand as questions.
const minFragmentRunes = 8

// Decomposer splits a compound question into atomic sub-questions. The
// primary path asks the model for a strict JSON object; parse failures and
// unusable replies fall back to a deterministic structural split. Decompose
// never returns an empty list: it yields at least [question].
type Decomposer struct {
	LLM llm.Provider
}

const decomposePromptFmt = `Pecah pertanyaan kompleks berikut menjadi pertanyaan-pertanyaan sederhana.
Setiap pertanyaan harus fokus pada SATU item atau aspek saja dan tetap dalam bahasa pertanyaan asli.

Format output HARUS JSON: {"questions": ["pertanyaan1", "pertanyaan2", ...]}

Contoh:
Input: "Berapa stok laptop dan mouse, serta lokasi penyimpanannya?"
Output: {"questions": ["Berapa stok laptop?", "Berapa stok mouse?", "Dimana lokasi penyimpanan laptop?", "Dimana lokasi penyimpanan mouse?"]}

Pertanyaan: "%s"`

// DecompositionParseError reports an unusable model reply. It is always
// recovered locally by the structural fallback and never escapes Decompose.
type DecompositionParseError struct {
	Reason string
}

func (e *DecompositionParseError) Error() string {
	return "decomposition reply unusable: " + e.Reason
}

// Decompose returns the ordered atomic sub-questions of a compound
// question. Sub-questions are never decomposed further.
func (d *Decomposer) Decompose(ctx context.Context, question string) []string {
	if d.LLM != nil {
		reply, err := d.LLM.Complete(ctx, fmt.Sprintf(decomposePromptFmt, question), 300)
		if err == nil {
			subs, perr := parseQuestions(reply)
			if perr == nil {
				if len(subs) >= 2 {
					return subs
				}
				// a single rephrased question is not a decomposition
				return []string{question}
			}
			logger.Warnf("decomposer: %v, using structural split", perr)
		} else {
			logger.Warnf("decomposer: model call failed, using structural split: %v", err)
		}
	}
	return structuralSplit(question)
}

// parseQuestions extracts the {"questions": [...]} object from a raw model
// reply. It takes the first balanced brace span and never trusts field
// types blindly.
func parseQuestions(reply string) ([]string, *DecompositionParseError) {
	span := firstBalancedObject(reply)
	if span == "" {
		return nil, &DecompositionParseError{Reason: "no JSON object in reply"}
	}
	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil, &DecompositionParseError{Reason: err.Error()}
	}
	subs := make([]string, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		subs = append(subs, ensureQuestionMark(q))
	}
	if len(subs) == 0 {
		return nil, &DecompositionParseError{Reason: "empty questions list"}
	}
	return subs, nil
}

// firstBalancedObject returns the first balanced {...} span in s, honoring
// JSON string literals, or "" when none exists.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

var splitMarkers = []string{" dan ", " serta ", " atau ", " and ", ";", ","}

// structuralSplit cuts the question on conjunctions and hard punctuation.
// Fewer than two usable fragments means the complexity signal was a false
// positive and the question passes through unchanged.
func structuralSplit(question string) []string {
	normalized := question
	for _, m := range splitMarkers {
		normalized = strings.ReplaceAll(normalized, m, "|")
	}
	// double-whitespace runs also separate clauses
	for strings.Contains(normalized, "  ") {
		normalized = strings.ReplaceAll(normalized, "  ", "|")
	}
	var subs []string
	for _, part := range strings.Split(normalized, "|") {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) < minFragmentRunes {
			continue
		}
		subs = append(subs, ensureQuestionMark(part))
	}
	if len(subs) < 2 {
		return []string{question}
	}
	return subs
}

func ensureQuestionMark(q string) string {
	if strings.Contains(q, "?") {
		return q
	}
	return q + "?"
}
