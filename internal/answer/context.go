package answer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atabot/atabot/internal/schema"
)

// emptyContextLine keeps the model prompt well formed when retrieval found
// nothing usable.
const emptyContextLine = "Tidak ada data relevan yang ditemukan."

// maxMetadataFields bounds the metadata rendered per evidence item.
const maxMetadataFields = 3

// BuildContext renders filtered evidence as the numbered context block fed
// to the language model. Each line carries the content, up to three
// non-private metadata fields and the relevance score.
func BuildContext(results []schema.SearchResult) string {
	if len(results) == 0 {
		return emptyContextLine
	}
	lines := make([]string, 0, len(results))
	for i, r := range results {
		score := fmt.Sprintf("(relevansi: %.2f%%)", r.Score*100)
		meta := renderMetadata(r.Document.Metadata)
		if meta != "" {
			lines = append(lines, fmt.Sprintf("%d. %s [%s] %s", i+1, r.Document.Content, meta, score))
		} else {
			lines = append(lines, fmt.Sprintf("%d. %s %s", i+1, r.Document.Content, score))
		}
	}
	return strings.Join(lines, "\n")
}

// renderMetadata formats at most maxMetadataFields metadata entries,
// skipping private keys (underscore prefix) and empty values. Keys are
// sorted for deterministic output.
func renderMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, maxMetadataFields)
	for _, k := range keys {
		v := metadata[k]
		if v == nil {
			continue
		}
		s := fmt.Sprintf("%v", v)
		if s == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, s))
		if len(parts) == maxMetadataFields {
			break
		}
	}
	return strings.Join(parts, ", ")
}
