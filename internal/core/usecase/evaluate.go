package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

type EvaluatorOptions struct {
	// GroundednessThreshold is the minimum answer/context cosine similarity
	// for an answer to count as grounded.
	GroundednessThreshold float64
}

type AnswerEvaluator struct {
	llm      ports.LLM
	embedder ports.Embedder
	opts     EvaluatorOptions
}

func NewAnswerEvaluator(llm ports.LLM, embedder ports.Embedder, opts EvaluatorOptions) *AnswerEvaluator {
	if opts.GroundednessThreshold <= 0 {
		opts.GroundednessThreshold = 0.75
	}
	return &AnswerEvaluator{llm: llm, embedder: embedder, opts: opts}
}

type judgmentResponse struct {
	Accuracy     float64 `json:"accuracy"`
	Relevance    float64 `json:"relevance"`
	Completeness float64 `json:"completeness"`
	Coherence    float64 `json:"coherence"`
	Overall      float64 `json:"overall"`
	Reasoning    string  `json:"reasoning"`
}

// Evaluate scores an answer with two independent checks: a structured LLM
// judgment across four quality dimensions, and an embedding-similarity
// groundedness check against the retrieval context.
func (e *AnswerEvaluator) Evaluate(ctx context.Context, answer, query, contextBlob string) (*domain.EvaluationResult, error) {
	if e.llm == nil || e.embedder == nil {
		return nil, domain.WrapError(domain.ErrNotConfigured, "evaluate answer", fmt.Errorf("llm and embedding services are required"))
	}

	raw, err := e.llm.GenerateJSON(ctx, buildJudgmentPrompt(answer, query, contextBlob))
	if err != nil {
		return nil, fmt.Errorf("evaluate answer: %w", err)
	}
	var judgment judgmentResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &judgment); err != nil {
		return nil, fmt.Errorf("evaluate answer: unmarshal judgment: %w", err)
	}

	grounded, err := e.checkGroundedness(ctx, answer, contextBlob)
	if err != nil {
		return nil, err
	}

	result := &domain.EvaluationResult{
		Accuracy:     judgment.Accuracy,
		Relevance:    judgment.Relevance,
		Completeness: judgment.Completeness,
		Coherence:    judgment.Coherence,
		Overall:      judgment.Overall,
		Reasoning:    strings.TrimSpace(judgment.Reasoning),
		IsGrounded:   grounded,
		Answer:       answer,
	}
	result.ClampScores()
	return result, nil
}

// checkGroundedness fails closed on empty inputs without touching the
// embedding service: an empty answer or empty context can never be
// grounded, and embedding empty text is meaningless. An embedding failure
// is a temporary pipeline error, not a silent "grounded" default.
func (e *AnswerEvaluator) checkGroundedness(ctx context.Context, answer, contextBlob string) (bool, error) {
	if strings.TrimSpace(answer) == "" || strings.TrimSpace(contextBlob) == "" {
		return false, nil
	}

	vectors, err := e.embedder.Embed(ctx, []string{answer, contextBlob})
	if err != nil {
		return false, domain.WrapError(domain.ErrTemporary, "groundedness check", err)
	}
	if len(vectors) != 2 {
		return false, domain.WrapError(domain.ErrTemporary, "groundedness check", fmt.Errorf("expected 2 embeddings, got %d", len(vectors)))
	}

	return cosineSimilarity(vectors[0], vectors[1]) >= e.opts.GroundednessThreshold, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func buildJudgmentPrompt(answer, query, contextBlob string) string {
	return fmt.Sprintf(`You grade an answer to a question about a codebase against the retrieved
context. Score each dimension from 0.0 to 1.0.
Return ONLY a JSON object:
{"accuracy":0.0,"relevance":0.0,"completeness":0.0,"coherence":0.0,"overall":0.0,"reasoning":"..."}

accuracy: claims match the context. relevance: the answer addresses the
question. completeness: nothing important from the context is missing.
coherence: the answer is clear and well structured. overall: your combined
verdict.

Question:
%s

Context:
%s

Answer:
%s`, query, contextBlob, answer)
}
