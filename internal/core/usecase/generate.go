package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

type AnswerGenerator struct {
	llm ports.LLM
}

func NewAnswerGenerator(llm ports.LLM) *AnswerGenerator {
	return &AnswerGenerator{llm: llm}
}

// Generate produces an answer from query and context. Raw generated text is
// the contract; no structured output.
func (g *AnswerGenerator) Generate(ctx context.Context, query, contextBlob string) (string, error) {
	return g.generate(ctx, buildAnswerPrompt(query, contextBlob))
}

// Regenerate retries a low-scoring answer, feeding the evaluator's verdict
// back into the prompt.
func (g *AnswerGenerator) Regenerate(ctx context.Context, query, contextBlob, priorAnswer, priorReasoning string) (string, error) {
	return g.generate(ctx, buildRetryPrompt(query, contextBlob, priorAnswer, priorReasoning))
}

func (g *AnswerGenerator) generate(ctx context.Context, prompt string) (string, error) {
	if g.llm == nil {
		return "", domain.WrapError(domain.ErrNotConfigured, "generate answer", fmt.Errorf("llm service is required"))
	}
	answer, err := g.llm.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func buildAnswerPrompt(query, contextBlob string) string {
	return fmt.Sprintf(`Answer the question about this codebase using ONLY the context below.
Cite file paths when referring to code. If the context is insufficient,
say so instead of guessing.

Context:
%s

Question:
%s`, contextBlob, query)
}

func buildRetryPrompt(query, contextBlob, priorAnswer, priorReasoning string) string {
	return fmt.Sprintf(`Your previous answer to this question scored poorly. Improve it using
ONLY the context below. Address the reviewer's criticism directly; do not
introduce information that is not in the context.

Context:
%s

Question:
%s

Previous answer:
%s

Reviewer criticism:
%s`, contextBlob, query, priorAnswer, priorReasoning)
}
