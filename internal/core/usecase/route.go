package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

type StrategyRouter struct {
	llm    ports.LLM
	logger *slog.Logger
}

func NewStrategyRouter(llm ports.LLM, logger *slog.Logger) *StrategyRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StrategyRouter{llm: llm, logger: logger}
}

type routerResponse struct {
	Strategy   string        `json:"strategy"`
	Filter     domain.Filter `json:"filter"`
	Reasoning  string        `json:"reasoning"`
	Confidence float64       `json:"confidence"`
}

// Decide classifies the query into one retrieval strategy via a single
// structured LLM call. The filter-nullability rule for basic and graph is
// re-asserted after parsing: a filter the model attached in violation of
// its instructions is dropped with a warning instead of being executed.
func (r *StrategyRouter) Decide(ctx context.Context, query string) (*domain.RetrievalDecision, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "route query", fmt.Errorf("query is empty"))
	}
	if r.llm == nil {
		return nil, domain.WrapError(domain.ErrNotConfigured, "route query", fmt.Errorf("llm service is required"))
	}

	raw, err := r.llm.GenerateJSON(ctx, buildRouterPrompt(query))
	if err != nil {
		return nil, fmt.Errorf("route query: %w", err)
	}

	var resp routerResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return nil, fmt.Errorf("route query: unmarshal decision: %w", err)
	}

	decision := &domain.RetrievalDecision{
		Strategy:   domain.ParseStrategy(resp.Strategy),
		Filter:     resp.Filter,
		Reasoning:  strings.TrimSpace(resp.Reasoning),
		Confidence: domain.Clamp01(resp.Confidence),
	}

	if !decision.Strategy.AllowsFilter() && !decision.Filter.IsEmpty() {
		r.logger.Warn("router returned filter for unfiltered strategy, dropping",
			"strategy", string(decision.Strategy))
		decision.Filter = nil
	}
	return decision, nil
}

func buildRouterPrompt(query string) string {
	return fmt.Sprintf(`You route questions about a codebase to one retrieval strategy.
Return ONLY a JSON object:
{"strategy":"basic|metadata|graph|documentation|example|hierarchical","filter":null,"reasoning":"...","confidence":0.0}

Decision rules, first match wins:
- The question names a specific file, path, package or identifier and should be
  restricted to it -> "metadata", with a filter like {"file_path":"..."} or
  {"file_path":{"$regex":"..."}}.
- The question asks about relationships, callers, dependencies or change impact
  ("what calls X", "what breaks if") -> "graph", filter MUST be null.
- The question asks for an example or usage pattern -> "example".
- The question is a how-to or conceptual question best answered from docs -> "documentation".
- The question asks for a broad overview or architecture summary -> "hierarchical", filter MUST be null.
- Anything else -> "basic", filter MUST be null.

Question:
%s`, query)
}
