package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

// Transformation modes. ModeSubQueries collapses decomposed queries back
// into a single combined search string; multi-query fan-out is not
// implemented.
const (
	TransformNone       = "none"
	TransformRewrite    = "rewrite"
	TransformSubQueries = "sub_queries"
)

type QueryTransformer struct {
	llm  ports.LLM
	mode string
}

func NewQueryTransformer(llm ports.LLM, mode string) *QueryTransformer {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case TransformRewrite, TransformSubQueries:
	default:
		mode = TransformNone
	}
	return &QueryTransformer{llm: llm, mode: mode}
}

// Transform optionally rewrites the raw query before retrieval. The none
// mode returns the input without touching the model.
func (t *QueryTransformer) Transform(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "transform query", fmt.Errorf("query is empty"))
	}
	if t.mode == TransformNone {
		return query, nil
	}
	if t.llm == nil {
		return "", domain.WrapError(domain.ErrNotConfigured, "transform query", fmt.Errorf("llm service is required for mode %q", t.mode))
	}

	rewritten, err := t.llm.GenerateText(ctx, buildTransformPrompt(t.mode, query))
	if err != nil {
		return "", fmt.Errorf("transform query: %w", err)
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query, nil
	}
	if t.mode == TransformSubQueries {
		rewritten = collapseSubQueries(rewritten)
	}
	return rewritten, nil
}

func buildTransformPrompt(mode, query string) string {
	if mode == TransformSubQueries {
		return fmt.Sprintf(`Decompose the following question about a codebase into up to three short
search queries, one per line. Each line must stand alone as a search query.
Return only the queries, no numbering, no commentary.

Question:
%s`, query)
	}
	return fmt.Sprintf(`Rewrite the following question about a codebase into a single, precise
search query. Keep identifiers, file names and technical terms verbatim.
Return only the rewritten query.

Question:
%s`, query)
}

// collapseSubQueries joins decomposed lines into one combined search string
// so downstream retrieval stays single-query.
func collapseSubQueries(raw string) string {
	lines := strings.Split(raw, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, " ")
}
