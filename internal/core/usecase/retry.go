package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// NoContextAnswer is returned without generation or evaluation when
// retrieval produced nothing to ground an answer on.
const NoContextAnswer = "I could not find relevant context in the indexed codebase to answer this question."

type RetryOptions struct {
	// ScoreThreshold triggers one regeneration when the initial overall
	// score is strictly below it.
	ScoreThreshold float64
}

type RetryController struct {
	generator *AnswerGenerator
	evaluator *AnswerEvaluator
	logger    *slog.Logger
	opts      RetryOptions
}

func NewRetryController(generator *AnswerGenerator, evaluator *AnswerEvaluator, logger *slog.Logger, opts RetryOptions) *RetryController {
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = 0.6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryController{generator: generator, evaluator: evaluator, logger: logger, opts: opts}
}

// Run generates an answer, grades it, and regenerates at most once when
// the grade falls below the threshold. The second grade is final either
// way; there is no loop.
func (rc *RetryController) Run(ctx context.Context, query, contextBlob string) (*domain.AnswerResult, error) {
	if strings.TrimSpace(contextBlob) == "" {
		return &domain.AnswerResult{Answer: NoContextAnswer, Attempts: 0}, nil
	}

	answer, err := rc.generator.Generate(ctx, query, contextBlob)
	if err != nil {
		return nil, err
	}

	evaluation, err := rc.evaluator.Evaluate(ctx, answer, query, contextBlob)
	if err != nil {
		return nil, err
	}
	attempts := 1

	if evaluation.Overall < rc.opts.ScoreThreshold {
		rc.logger.Info("answer below quality threshold, regenerating",
			"score", evaluation.Overall, "threshold", rc.opts.ScoreThreshold)

		retried, err := rc.generator.Regenerate(ctx, query, contextBlob, answer, evaluation.Reasoning)
		if err != nil {
			return nil, err
		}
		evaluation, err = rc.evaluator.Evaluate(ctx, retried, query, contextBlob)
		if err != nil {
			return nil, err
		}
		answer = retried
		attempts = 2
	}

	score := evaluation.Overall
	grounded := evaluation.IsGrounded
	return &domain.AnswerResult{
		Answer:   answer,
		Score:    &score,
		Grounded: &grounded,
		Attempts: attempts,
	}, nil
}
