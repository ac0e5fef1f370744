package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dfedorov/codequery/internal/core/domain"
)

func TestDecideParsesStructuredResponse(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{
		`{"strategy":"metadata","filter":{"file_path":"billing/payment.go"},"reasoning":"names a file","confidence":0.9}`,
	}}
	router := NewStrategyRouter(llm, nil)

	decision, err := router.Decide(context.Background(), "what does billing/payment.go do?")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Strategy != domain.StrategyMetadata {
		t.Fatalf("expected metadata strategy, got %s", decision.Strategy)
	}
	if decision.Filter.IsEmpty() {
		t.Fatalf("expected filter to survive for metadata strategy")
	}
	if decision.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", decision.Confidence)
	}
}

func TestDecideDropsFilterForUnfilteredStrategies(t *testing.T) {
	for _, strategy := range []string{"basic", "graph", "hierarchical"} {
		llm := &stubLLM{jsonResponses: []string{
			`{"strategy":"` + strategy + `","filter":{"file_path":"x.go"},"confidence":0.8}`,
		}}
		router := NewStrategyRouter(llm, nil)

		decision, err := router.Decide(context.Background(), "q")
		if err != nil {
			t.Fatalf("Decide(%s) error = %v", strategy, err)
		}
		if !decision.Filter.IsEmpty() {
			t.Fatalf("expected filter dropped for %s strategy", strategy)
		}
	}
}

func TestDecideUnknownStrategyDefaultsToBasic(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{`{"strategy":"vibes","confidence":0.5}`}}
	router := NewStrategyRouter(llm, nil)

	decision, err := router.Decide(context.Background(), "q")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Strategy != domain.StrategyBasic {
		t.Fatalf("expected basic fallback, got %s", decision.Strategy)
	}
}

func TestDecideClampsConfidence(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{`{"strategy":"basic","confidence":3.2}`}}
	router := NewStrategyRouter(llm, nil)

	decision, err := router.Decide(context.Background(), "q")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", decision.Confidence)
	}
}

func TestDecideMalformedJSONFails(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{"not json"}}
	router := NewStrategyRouter(llm, nil)
	if _, err := router.Decide(context.Background(), "q"); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestDecideLLMErrorPropagates(t *testing.T) {
	llm := &stubLLM{jsonErr: errors.New("model down")}
	router := NewStrategyRouter(llm, nil)
	if _, err := router.Decide(context.Background(), "q"); err == nil {
		t.Fatalf("expected error")
	}
}
