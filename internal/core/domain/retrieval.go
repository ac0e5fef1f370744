package domain

import "strings"

// Strategy selects how context is retrieved for a query.
type Strategy string

const (
	StrategyBasic         Strategy = "basic"
	StrategyMetadata      Strategy = "metadata"
	StrategyGraph         Strategy = "graph"
	StrategyDocumentation Strategy = "documentation"
	StrategyExample       Strategy = "example"
	StrategyHierarchical  Strategy = "hierarchical"
)

// ParseStrategy maps free text to a known strategy, defaulting to basic.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyMetadata:
		return StrategyMetadata
	case StrategyGraph:
		return StrategyGraph
	case StrategyDocumentation:
		return StrategyDocumentation
	case StrategyExample:
		return StrategyExample
	case StrategyHierarchical:
		return StrategyHierarchical
	default:
		return StrategyBasic
	}
}

// AllowsFilter reports whether a strategy may carry a metadata filter.
// Basic and graph searches are always unfiltered; hierarchical builds its
// own phase filters internally.
func (s Strategy) AllowsFilter() bool {
	switch s {
	case StrategyBasic, StrategyGraph, StrategyHierarchical:
		return false
	default:
		return true
	}
}

// RetrievalDecision is the router's verdict for a single query.
type RetrievalDecision struct {
	Strategy   Strategy `json:"strategy"`
	Filter     Filter   `json:"filter,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Confidence float64  `json:"confidence"`
}

// ScoredPoint is one ranked match returned by the vector store.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
	Vector  []float32
}

// AnswerResult is the pipeline's user-facing envelope. Score and Grounded
// are nil when evaluation was skipped (empty-context short circuit).
type AnswerResult struct {
	Answer   string   `json:"answer"`
	Score    *float64 `json:"score,omitempty"`
	Grounded *bool    `json:"grounded,omitempty"`
	Strategy Strategy `json:"strategy"`
	Attempts int      `json:"attempts"`
}
