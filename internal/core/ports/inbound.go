package ports

import (
	"context"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the end-to-end pipeline:
// one free-text question in, one answer envelope out.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.AnswerResult, error)
}
