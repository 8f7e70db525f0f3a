package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// maxContextTokens bounds the context block handed to the model so a large
// retrieval result cannot blow the prompt budget. Measured with cl100k_base.
// maxContextRunes is the fallback bound when no encoder is available.
const (
	maxContextTokens = 750
	maxContextRunes  = 3000
)

const systemPersona = "Anda adalah Atabot, asisten AI untuk bisnis yang memberikan jawaban akurat berdasarkan data yang tersedia."

// TruncateContext cuts context down to the prompt token budget. With a nil
// encoder it falls back to a rune-wise cut, which never splits a multibyte
// character.
func TruncateContext(context string, enc *tiktoken.Tiktoken) string {
	if enc != nil {
		toks := enc.Encode(context, nil, nil)
		if len(toks) <= maxContextTokens {
			return context
		}
		return enc.Decode(toks[:maxContextTokens]) + "..."
	}
	runes := []rune(context)
	if len(runes) <= maxContextRunes {
		return context
	}
	return string(runes[:maxContextRunes]) + "..."
}

// BuildAnswerPrompt renders the grounded answering prompt. The instructions
// pin the model to the supplied context and to Indonesian output; the
// context block is bounded by TruncateContext first.
func BuildAnswerPrompt(query, context string, enc *tiktoken.Tiktoken) string {
	context = TruncateContext(context, enc)
	return fmt.Sprintf(`Anda adalah Atabot, asisten bisnis cerdas yang membantu menjawab pertanyaan berdasarkan data yang tersedia.

KONTEKS DATA:
%s

PERTANYAAN:
%s

INSTRUKSI:
1. Jawab HANYA berdasarkan data konteks yang tersedia
2. Jika data spesifik tersedia, sebutkan angka atau detail dengan tepat
3. Jika informasi tidak tersedia dalam konteks, katakan "Data yang diminta tidak tersedia dalam sistem"
4. Gunakan bahasa Indonesia yang jelas dan profesional
5. Berikan jawaban yang langsung dan informatif

JAWABAN:`, context, query)
}
