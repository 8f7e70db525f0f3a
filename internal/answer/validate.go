package answer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// minInformativeRunes marks replies too short to stand on their own.
const minInformativeRunes = 10

var whitespaceRuns = regexp.MustCompile(`\s+`)

// bareAcknowledgements are replies that answer nothing without their
// question restated.
var bareAcknowledgements = map[string]struct{}{
	"ya": {}, "tidak": {}, "ok": {}, "oke": {}, "yes": {}, "no": {},
}

// Validate post-processes a generated reply: collapses whitespace runs,
// guarantees terminal punctuation and restates the question in front of
// replies too short or too bare to be informative alone.
func Validate(reply, question string) string {
	reply = whitespaceRuns.ReplaceAllString(strings.TrimSpace(reply), " ")
	if reply == "" {
		return fmt.Sprintf("Untuk pertanyaan '%s': tidak ada jawaban.", question)
	}
	_, bare := bareAcknowledgements[strings.ToLower(strings.TrimRight(reply, ".!?"))]
	if utf8.RuneCountInString(reply) < minInformativeRunes || bare {
		reply = fmt.Sprintf("Untuk pertanyaan '%s': %s", question, reply)
	}
	if !strings.ContainsRune(".!?", rune(reply[len(reply)-1])) {
		reply += "."
	}
	return reply
}
