// Package language guesses the language of a question so canned responses
// can match it. Detection is a pluggable strategy; the default is a small
// lexical scorer covering Indonesian and English.
package language

import "strings"

// Tag identifies a detected language.
type Tag string

const (
	Indonesian Tag = "id"
	English    Tag = "en"
)

// Detector reports the most likely language of a text.
type Detector interface {
	Detect(text string) Tag
}

// LexicalDetector scores function words from each language and picks the
// higher count. Ties and empty input fall back to Indonesian, the service's
// primary audience.
type LexicalDetector struct{}

var indonesianWords = map[string]struct{}{
	"apa": {}, "siapa": {}, "berapa": {}, "dimana": {}, "di": {}, "mana": {},
	"kapan": {}, "mengapa": {}, "bagaimana": {}, "dan": {}, "atau": {},
	"serta": {}, "yang": {}, "dengan": {}, "untuk": {}, "dari": {}, "ke": {},
	"pada": {}, "adalah": {}, "tidak": {}, "stok": {}, "daftar": {}, "semua": {},
	"harga": {}, "jumlah": {}, "lokasi": {}, "tolong": {}, "saya": {},
}

var englishWords = map[string]struct{}{
	"what": {}, "who": {}, "how": {}, "many": {}, "much": {}, "where": {},
	"when": {}, "why": {}, "which": {}, "and": {}, "or": {}, "the": {},
	"is": {}, "are": {}, "of": {}, "in": {}, "for": {}, "to": {}, "with": {},
	"list": {}, "all": {}, "please": {}, "stock": {}, "price": {}, "location": {},
}

func (LexicalDetector) Detect(text string) Tag {
	var id, en int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if _, ok := indonesianWords[w]; ok {
			id++
		}
		if _, ok := englishWords[w]; ok {
			en++
		}
	}
	if en > id {
		return English
	}
	return Indonesian
}
