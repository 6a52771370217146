package storage

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Fields never shown to the model.
var hiddenFields = map[string]bool{
	"contentVector": true,
	"tags":          true,
}

// FormatDocuments renders retrieved products as text for a prompt: each
// product is a tab-indented JSON object with "_id" first, objects are
// separated by ",\n" and the text ends with a blank line.
func FormatDocuments(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, formatDocument(doc))
	}
	return strings.Join(parts, ",\n") + "\n\n"
}

func formatDocument(doc Document) string {
	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		if k == "_id" || hiddenFields[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{\n\t\"_id\": ")
	b.WriteString(encodeIndented(doc.Content))
	for _, k := range keys {
		b.WriteString(",\n\t")
		b.WriteString(encodeIndented(k))
		b.WriteString(": ")
		b.WriteString(encodeIndented(doc.Metadata[k]))
	}
	b.WriteString("\n}")
	return b.String()
}

// encodeIndented encodes v one level deep inside a tab-indented object,
// without HTML escaping.
func encodeIndented(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("\t", "\t")
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
