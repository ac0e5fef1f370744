package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dfedorov/codequery/internal/core/domain"
)

func TestEvaluateParsesJudgmentAndClampsScores(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{
		`{"accuracy":0.9,"relevance":1.4,"completeness":-0.2,"coherence":0.8,"overall":0.85,"reasoning":"solid"}`,
	}}
	embedder := &stubEmbedder{}
	e := NewAnswerEvaluator(llm, embedder, EvaluatorOptions{GroundednessThreshold: 0.75})

	result, err := e.Evaluate(context.Background(), "the answer", "the question", "File: a.go\n```\ncode\n```\n---\n")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.Relevance != 1 {
		t.Fatalf("expected relevance clamped to 1, got %v", result.Relevance)
	}
	if result.Completeness != 0 {
		t.Fatalf("expected completeness clamped to 0, got %v", result.Completeness)
	}
	if result.Overall != 0.85 {
		t.Fatalf("expected overall 0.85, got %v", result.Overall)
	}
	if result.Reasoning != "solid" {
		t.Fatalf("unexpected reasoning %q", result.Reasoning)
	}
}

func TestGroundednessIdenticalTextsIsGrounded(t *testing.T) {
	// Both texts embed to the same vector, cosine similarity 1.0.
	llm := &stubLLM{jsonResponses: []string{`{"overall":0.9}`}}
	embedder := &stubEmbedder{}
	e := NewAnswerEvaluator(llm, embedder, EvaluatorOptions{GroundednessThreshold: 0.99})

	result, err := e.Evaluate(context.Background(), "same text", "q", "same text")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !result.IsGrounded {
		t.Fatalf("identical texts must be grounded")
	}
	if embedder.embedCalls != 1 {
		t.Fatalf("expected one batched embed call, got %d", embedder.embedCalls)
	}
}

func TestGroundednessDissimilarVectorsNotGrounded(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{`{"overall":0.9}`}}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"answer":  {1, 0, 0},
		"context": {0, 1, 0},
	}}
	e := NewAnswerEvaluator(llm, embedder, EvaluatorOptions{GroundednessThreshold: 0.75})

	result, err := e.Evaluate(context.Background(), "answer", "q", "context")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.IsGrounded {
		t.Fatalf("orthogonal embeddings must not be grounded")
	}
}

func TestGroundednessEmptyInputFailsClosedWithoutEmbedding(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{`{"overall":0.9}`, `{"overall":0.9}`}}
	embedder := &stubEmbedder{}
	e := NewAnswerEvaluator(llm, embedder, EvaluatorOptions{})

	result, err := e.Evaluate(context.Background(), "   ", "q", "context")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.IsGrounded {
		t.Fatalf("empty answer must not be grounded")
	}

	result, err = e.Evaluate(context.Background(), "answer", "q", "")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.IsGrounded {
		t.Fatalf("empty context must not be grounded")
	}
	if embedder.embedCalls != 0 {
		t.Fatalf("embedding service must not be called for empty inputs, got %d calls", embedder.embedCalls)
	}
}

func TestGroundednessEmbedFailureIsRetryable(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{`{"overall":0.9}`}}
	embedder := &stubEmbedder{embedErr: errors.New("connection refused")}
	e := NewAnswerEvaluator(llm, embedder, EvaluatorOptions{})

	_, err := e.Evaluate(context.Background(), "answer", "q", "context")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsRetryable(err) {
		t.Fatalf("embedding failure during groundedness must be retryable, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("expected similarity ~1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("expected similarity 0, got %v", got)
	}
	if got := cosineSimilarity(nil, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}
