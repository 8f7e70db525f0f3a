// Package query decides whether a question is compound and, when it is,
// splits it into independently answerable sub-questions.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/atabot/atabot/internal/llm"
	"github.com/atabot/atabot/internal/logger"
)

// Classifier decides whether a question asks for multiple distinct pieces of
// information. The primary path is a yes/no model call; when the call fails
// or the reply carries no verdict, deterministic structural heuristics take
// over.
type Classifier struct {
	LLM  llm.Provider
	Cues *CueCache
}

const classifyPromptFmt = `Apakah pertanyaan berikut menanyakan beberapa informasi yang berbeda sekaligus?
Jawab hanya dengan "ya" atau "tidak".

Pertanyaan: "%s"`

// Classify returns true when the question must be decomposed.
func (c *Classifier) Classify(ctx context.Context, question string) bool {
	if c.LLM != nil {
		reply, err := c.LLM.Complete(ctx, fmt.Sprintf(classifyPromptFmt, question), 8)
		if err == nil {
			if verdict, ok := parseVerdict(reply); ok {
				if verdict {
					c.learnCues(question)
				}
				return verdict
			}
			logger.Warnf("classifier: unparseable verdict %q, using structural heuristics", reply)
		} else {
			logger.Warnf("classifier: model call failed, using structural heuristics: %v", err)
		}
	}
	return c.structural(question)
}

var affirmativeTokens = map[string]struct{}{
	"ya": {}, "yes": {}, "benar": {}, "true": {},
}

var negativeTokens = map[string]struct{}{
	"tidak": {}, "no": {}, "bukan": {}, "false": {},
}

// parseVerdict scans the reply for a yes/no token. The second return value
// is false when no verdict token appears.
func parseVerdict(reply string) (bool, bool) {
	for _, w := range strings.Fields(strings.ToLower(reply)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if _, ok := affirmativeTokens[w]; ok {
			return true, true
		}
		if _, ok := negativeTokens[w]; ok {
			return false, true
		}
	}
	return false, false
}

// complexityCues are static markers of compound questions, Indonesian first.
var complexityCues = []string{
	" dan ", " serta ", " atau ",
	"bandingkan", "berapa masing-masing", "masing-masing",
	"semuanya", "semua", "daftar", "list",
	" and ", " as well as ", "compare", "each of",
}

// structural applies deterministic heuristics: multiple question marks,
// heavy comma or semicolon use, known conjunction cues, learned cues, and
// repeated content words suggesting parallel phrase structure.
func (c *Classifier) structural(question string) bool {
	lower := strings.ToLower(question)
	if strings.Count(question, "?") > 1 {
		return true
	}
	if strings.Count(question, ",") >= 2 || strings.Contains(question, ";") {
		return true
	}
	for _, cue := range complexityCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	if c.Cues.Matches(lower) {
		return true
	}
	return hasRepeatedContentWord(lower)
}

var structuralStopwords = map[string]struct{}{
	"yang": {}, "untuk": {}, "dengan": {}, "dari": {}, "pada": {},
	"adalah": {}, "berapa": {}, "dimana": {}, "bagaimana": {},
	"what": {}, "where": {}, "which": {}, "there": {}, "about": {},
}

// hasRepeatedContentWord detects parallel structure like
// "stok laptop dan stok mouse": the same content word heading two phrases.
func hasRepeatedContentWord(lower string) bool {
	seen := make(map[string]int)
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len([]rune(w)) < 4 {
			continue
		}
		if _, stop := structuralStopwords[w]; stop {
			continue
		}
		seen[w]++
		if seen[w] >= 2 {
			return true
		}
	}
	return false
}

// learnCues stores distinctive words from a model-confirmed compound
// question so later structural passes can recognize similar questions.
func (c *Classifier) learnCues(question string) {
	if c.Cues == nil {
		return
	}
	lower := strings.ToLower(question)
	if c.structural(lower) {
		// the heuristics already cover this shape
		return
	}
	added := 0
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len([]rune(w)) < 5 {
			continue
		}
		if _, stop := structuralStopwords[w]; stop {
			continue
		}
		c.Cues.Add(w)
		if added++; added >= 2 {
			return
		}
	}
}
