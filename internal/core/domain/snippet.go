package domain

import "strings"

// ContextSnippet is one retrieved piece of code or documentation.
type ContextSnippet struct {
	FilePath string
	Content  string
}

const (
	snippetFileMarker = "File: "
	snippetFenceOpen  = "\n```\n"
	snippetFenceClose = "\n```\n---\n"

	// UnknownFilePath is used when no path field resolves on a match.
	UnknownFilePath = "unknown file"
)

// FormatSnippets renders snippets into the context blob passed between
// pipeline stages. ParseSnippets is its exact inverse; the two must stay in
// lockstep because the compressor round-trips the blob through both.
func FormatSnippets(snippets []ContextSnippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range snippets {
		b.WriteString(snippetFileMarker)
		b.WriteString(s.FilePath)
		b.WriteString(snippetFenceOpen)
		b.WriteString(s.Content)
		b.WriteString(snippetFenceClose)
	}
	return b.String()
}

// ParseSnippets recovers the snippet sequence from a context blob produced
// by FormatSnippets. Records that do not match the expected shape are
// skipped rather than guessed at.
func ParseSnippets(blob string) []ContextSnippet {
	if strings.TrimSpace(blob) == "" {
		return nil
	}
	records := strings.Split(blob, snippetFenceClose)
	out := make([]ContextSnippet, 0, len(records))
	for _, record := range records {
		if record == "" {
			continue
		}
		if !strings.HasPrefix(record, snippetFileMarker) {
			continue
		}
		rest := strings.TrimPrefix(record, snippetFileMarker)
		path, content, ok := strings.Cut(rest, snippetFenceOpen)
		if !ok {
			continue
		}
		out = append(out, ContextSnippet{FilePath: path, Content: content})
	}
	return out
}
