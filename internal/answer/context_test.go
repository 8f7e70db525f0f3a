package answer

import (
	"strings"
	"testing"

	"github.com/atabot/atabot/internal/schema"
)

func TestFilterByScore(t *testing.T) {
	in := []schema.SearchResult{result("a", 0.9), result("b", 0.3), result("c", 0.29)}
	out := FilterByScore(in, 0.3)
	if len(out) != 2 {
		t.Fatalf("kept %d results, want 2", len(out))
	}
	if out[0].Document.ID != "a" || out[1].Document.ID != "b" {
		t.Errorf("order not preserved: %+v", out)
	}
	if got := FilterByScore(nil, 0.3); len(got) != 0 {
		t.Errorf("empty input should stay empty, got %+v", got)
	}
}

func TestBuildContext_EmptySentinel(t *testing.T) {
	if got := BuildContext(nil); got != emptyContextLine {
		t.Errorf("BuildContext(nil) = %q, want sentinel line", got)
	}
}

func TestBuildContext_NumberedLines(t *testing.T) {
	in := []schema.SearchResult{
		{
			Document: schema.Document{ID: "a", Content: "laptop: 42 unit", Metadata: map[string]any{
				"tabel":   "inventaris",
				"gudang":  "Jakarta",
				"_synced": "2026-08-01",
			}},
			Score: 0.87,
		},
		{
			Document: schema.Document{ID: "b", Content: "mouse: 7 unit"},
			Score:    0.5,
		},
	}
	got := BuildContext(in)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "1. laptop: 42 unit [") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if strings.Contains(lines[0], "_synced") {
		t.Errorf("private metadata leaked into %q", lines[0])
	}
	if !strings.Contains(lines[0], "gudang: Jakarta") || !strings.Contains(lines[0], "tabel: inventaris") {
		t.Errorf("metadata missing from %q", lines[0])
	}
	if !strings.Contains(lines[0], "(relevansi: 87.00%)") {
		t.Errorf("relevance indicator missing from %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2. mouse: 7 unit (relevansi:") {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestRenderMetadata_Bounded(t *testing.T) {
	meta := map[string]any{"a": 1, "b": 2, "c": 3, "d": 4, "e": ""}
	got := renderMetadata(meta)
	if strings.Count(got, ":") != 3 {
		t.Errorf("want exactly 3 fields, got %q", got)
	}
	if strings.Contains(got, "e:") {
		t.Errorf("empty value should be skipped: %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		question string
		want     string
	}{
		{
			name:     "whitespace collapsed and period appended",
			reply:    "Stok  laptop\n42   unit",
			question: "Berapa stok laptop?",
			want:     "Stok laptop 42 unit.",
		},
		{
			name:     "terminal punctuation kept",
			reply:    "Stok laptop 42 unit!",
			question: "Berapa stok laptop?",
			want:     "Stok laptop 42 unit!",
		},
		{
			name:     "bare acknowledgement gets question restated",
			reply:    "Ya.",
			question: "Apakah stok tersedia?",
			want:     "Untuk pertanyaan 'Apakah stok tersedia?': Ya.",
		},
		{
			name:     "short reply gets question restated",
			reply:    "42 unit",
			question: "Berapa stok laptop?",
			want:     "Untuk pertanyaan 'Berapa stok laptop?': 42 unit.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.reply, tt.question); got != tt.want {
				t.Errorf("Validate(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}
