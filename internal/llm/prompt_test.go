package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
)

func TestTruncateContextRuneFallback(t *testing.T) {
	tests := []struct {
		name    string
		context string
		cut     bool
	}{
		{"short passthrough", "stok laptop: 15 unit", false},
		{"exactly at bound", strings.Repeat("a", maxContextRunes), false},
		{"over bound", strings.Repeat("a", maxContextRunes+100), true},
		{"multibyte at boundary", strings.Repeat("a", maxContextRunes-1) + "é" + strings.Repeat("b", 50), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := TruncateContext(tt.context, nil)
			assert.True(t, utf8.ValidString(out))
			if tt.cut {
				assert.True(t, strings.HasSuffix(out, "..."))
				assert.LessOrEqual(t, utf8.RuneCountInString(out), maxContextRunes+3)
			} else {
				assert.Equal(t, tt.context, out)
			}
		})
	}
}

func TestTruncateContextTokenBudget(t *testing.T) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		t.Skipf("cl100k_base encoding unavailable: %v", err)
	}

	short := "stok laptop: 15 unit"
	assert.Equal(t, short, TruncateContext(short, enc))

	long := strings.Repeat("data stok gudang laptop ", 400)
	out := TruncateContext(long, enc)
	assert.True(t, strings.HasSuffix(out, "..."))
	kept := strings.TrimSuffix(out, "...")
	assert.LessOrEqual(t, len(enc.Encode(kept, nil, nil)), maxContextTokens)
	assert.True(t, utf8.ValidString(out))
}

func TestBuildAnswerPromptKeepsRunesWhole(t *testing.T) {
	context := strings.Repeat("a", maxContextRunes-1) + "é" + strings.Repeat("b", 200)
	prompt := BuildAnswerPrompt("berapa stok laptop?", context, nil)

	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, "berapa stok laptop?")
	assert.Contains(t, prompt, "KONTEKS DATA:")
}
