package query

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestDecomposer_ModelJSON(t *testing.T) {
	d := &Decomposer{LLM: &mockLLM{
		response: `Berikut hasilnya: {"questions": ["Berapa stok laptop?", "Berapa stok mouse?"]} Semoga membantu.`,
	}}
	got := d.Decompose(context.Background(), "Berapa stok laptop dan mouse?")
	want := []string{"Berapa stok laptop?", "Berapa stok mouse?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decompose() = %v, want %v", got, want)
	}
}

func TestDecomposer_SingleQuestionReplyDegenerates(t *testing.T) {
	original := "Berapa stok laptop dan mouse?"
	d := &Decomposer{LLM: &mockLLM{response: `{"questions": ["Berapa stok laptop dan mouse digabung?"]}`}}
	got := d.Decompose(context.Background(), original)
	if !reflect.DeepEqual(got, []string{original}) {
		t.Errorf("Decompose() = %v, want [%q]", got, original)
	}
}

func TestDecomposer_MalformedJSONFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "no JSON at all", response: "pertanyaan pertama; pertanyaan kedua"},
		{name: "truncated object", response: `{"questions": ["Berapa stok laptop?"`},
		{name: "wrong field type", response: `{"questions": "bukan list"}`},
		{name: "empty list", response: `{"questions": []}`},
		{name: "model failure", err: errors.New("timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Decomposer{LLM: &mockLLM{response: tt.response, err: tt.err}}
			got := d.Decompose(context.Background(), "Berapa stok laptop dan berapa stok mouse?")
			if len(got) == 0 {
				t.Fatal("Decompose() returned an empty list")
			}
			want := []string{"Berapa stok laptop?", "berapa stok mouse?"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Decompose() = %v, want %v", got, want)
			}
		})
	}
}

func TestStructuralSplit(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "conjunction split",
			question: "Berapa stok laptop dan dimana lokasi gudangnya?",
			want:     []string{"Berapa stok laptop?", "dimana lokasi gudangnya?"},
		},
		{
			name:     "no split point degenerates to original",
			question: "Siapa CEO perusahaan?",
			want:     []string{"Siapa CEO perusahaan?"},
		},
		{
			name:     "short fragments are discarded",
			question: "Berapa stok laptop dan ya?",
			want:     []string{"Berapa stok laptop dan ya?"},
		},
		{
			name:     "question marks appended to fragments",
			question: "Sebutkan harga laptop; sebutkan harga mouse",
			want:     []string{"Sebutkan harga laptop?", "sebutkan harga mouse?"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := structuralSplit(tt.question); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("structuralSplit(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestFirstBalancedObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"surrounded by prose", `hasil: {"a": 1} selesai`, `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"brace inside string", `{"a": "}"}`, `{"a": "}"}`},
		{"unbalanced", `{"a": 1`, ""},
		{"no object", "tidak ada", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstBalancedObject(tt.in); got != tt.want {
				t.Errorf("firstBalancedObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
