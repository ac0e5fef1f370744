package usecase

import (
	"context"
	"testing"
)

func TestTransformNoneSkipsLLM(t *testing.T) {
	llm := &stubLLM{}
	tr := NewQueryTransformer(llm, TransformNone)

	out, err := tr.Transform(context.Background(), "  how does caching work?  ")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out != "how does caching work?" {
		t.Fatalf("expected trimmed passthrough, got %q", out)
	}
	if len(llm.textPrompts) != 0 {
		t.Fatalf("none mode must not call the llm, got %d calls", len(llm.textPrompts))
	}
}

func TestTransformRewrite(t *testing.T) {
	llm := &stubLLM{textResponses: []string{"  payment processing flow in billing package  "}}
	tr := NewQueryTransformer(llm, TransformRewrite)

	out, err := tr.Transform(context.Background(), "how do we handle payments")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out != "payment processing flow in billing package" {
		t.Fatalf("unexpected rewrite: %q", out)
	}
	if len(llm.textPrompts) != 1 {
		t.Fatalf("expected 1 llm call, got %d", len(llm.textPrompts))
	}
}

func TestTransformSubQueriesCollapsesToSingleString(t *testing.T) {
	llm := &stubLLM{textResponses: []string{"- payment validation\n- payment retries\n\n3. gateway errors"}}
	tr := NewQueryTransformer(llm, TransformSubQueries)

	out, err := tr.Transform(context.Background(), "how do payments fail")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out != "payment validation payment retries gateway errors" {
		t.Fatalf("unexpected collapsed query: %q", out)
	}
}

func TestTransformEmptyModelOutputFallsBackToInput(t *testing.T) {
	llm := &stubLLM{textResponses: []string{"   "}}
	tr := NewQueryTransformer(llm, TransformRewrite)

	out, err := tr.Transform(context.Background(), "original question")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out != "original question" {
		t.Fatalf("expected fallback to input, got %q", out)
	}
}

func TestTransformEmptyQueryFails(t *testing.T) {
	tr := NewQueryTransformer(&stubLLM{}, TransformNone)
	if _, err := tr.Transform(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestTransformUnknownModeDefaultsToNone(t *testing.T) {
	llm := &stubLLM{}
	tr := NewQueryTransformer(llm, "hyde")

	out, err := tr.Transform(context.Background(), "q")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if out != "q" || len(llm.textPrompts) != 0 {
		t.Fatalf("unknown mode must behave as none, got %q with %d llm calls", out, len(llm.textPrompts))
	}
}
