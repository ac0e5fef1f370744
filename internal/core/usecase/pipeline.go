package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

// Pipeline stage names used for error tagging and metrics.
const (
	StageTransform = "transform"
	StageRoute     = "route"
	StageRetrieve  = "retrieve"
	StageCompress  = "compress"
	StageAnswer    = "answer"
)

type AnswerPipeline struct {
	transformer *QueryTransformer
	router      *StrategyRouter
	retriever   *ContextRetriever
	compressor  *ContextCompressor
	controller  *RetryController
	publisher   ports.EventPublisher
	metrics     ports.PipelineMetrics
	logger      *slog.Logger
}

func NewAnswerPipeline(
	transformer *QueryTransformer,
	router *StrategyRouter,
	retriever *ContextRetriever,
	compressor *ContextCompressor,
	controller *RetryController,
	publisher ports.EventPublisher,
	metrics ports.PipelineMetrics,
	logger *slog.Logger,
) *AnswerPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerPipeline{
		transformer: transformer,
		router:      router,
		retriever:   retriever,
		compressor:  compressor,
		controller:  controller,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
	}
}

// Ask runs the full question-answering flow. Transformation and routing
// both depend only on the raw query and run concurrently; retrieval waits
// for both. Errors carry the stage and active strategy; the pipeline never
// retries on error itself, only on a low evaluation score inside the
// retry controller.
func (p *AnswerPipeline) Ask(ctx context.Context, question string) (*domain.AnswerResult, error) {
	started := time.Now()

	var (
		transformed string
		decision    *domain.RetrievalDecision
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transformed, err = p.runTransform(gctx, question)
		return err
	})
	g.Go(func() error {
		var err error
		decision, err = p.runRoute(gctx, question)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	strategy := string(decision.Strategy)
	p.logger.Info("retrieval strategy decided",
		"strategy", strategy, "confidence", decision.Confidence, "filtered", !decision.Filter.IsEmpty())

	blob, err := p.runRetrieve(ctx, transformed, decision)
	if err != nil {
		return nil, err
	}

	blob, err = p.runCompress(ctx, transformed, blob, strategy)
	if err != nil {
		return nil, err
	}

	result, err := p.runAnswer(ctx, transformed, blob, strategy)
	if err != nil {
		return nil, err
	}
	result.Strategy = decision.Strategy

	p.logger.Info("pipeline finished",
		"strategy", strategy,
		"attempts", result.Attempts,
		"duration", time.Since(started).String())
	if p.metrics != nil {
		p.metrics.RecordAnswer(strategy, result.Attempts, result.Score)
	}
	p.publishRun(ctx, question, result)
	return result, nil
}

func (p *AnswerPipeline) runTransform(ctx context.Context, question string) (string, error) {
	started := time.Now()
	transformed, err := p.transformer.Transform(ctx, question)
	p.observe(StageTransform, started, err)
	if err != nil {
		return "", domain.WrapStage(StageTransform, "", err)
	}
	return transformed, nil
}

func (p *AnswerPipeline) runRoute(ctx context.Context, question string) (*domain.RetrievalDecision, error) {
	started := time.Now()
	decision, err := p.router.Decide(ctx, question)
	p.observe(StageRoute, started, err)
	if err != nil {
		return nil, domain.WrapStage(StageRoute, "", err)
	}
	return decision, nil
}

func (p *AnswerPipeline) runRetrieve(ctx context.Context, query string, decision *domain.RetrievalDecision) (string, error) {
	started := time.Now()
	blob, err := p.retriever.Retrieve(ctx, query, decision)
	p.observe(StageRetrieve, started, err)
	if err != nil {
		return "", domain.WrapStage(StageRetrieve, string(decision.Strategy), err)
	}
	return blob, nil
}

func (p *AnswerPipeline) runCompress(ctx context.Context, query, blob, strategy string) (string, error) {
	started := time.Now()
	compressed, err := p.compressor.Compress(ctx, query, blob)
	p.observe(StageCompress, started, err)
	if err != nil {
		return "", domain.WrapStage(StageCompress, strategy, err)
	}
	return compressed, nil
}

func (p *AnswerPipeline) runAnswer(ctx context.Context, query, blob, strategy string) (*domain.AnswerResult, error) {
	started := time.Now()
	result, err := p.controller.Run(ctx, query, blob)
	p.observe(StageAnswer, started, err)
	if err != nil {
		return nil, domain.WrapStage(StageAnswer, strategy, err)
	}
	return result, nil
}

func (p *AnswerPipeline) observe(stage string, started time.Time, err error) {
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, time.Since(started), err)
	}
}

// publishRun emits the audit event best-effort: a broker outage must not
// fail an already answered question.
func (p *AnswerPipeline) publishRun(ctx context.Context, question string, result *domain.AnswerResult) {
	if p.publisher == nil {
		return
	}
	run := ports.EvaluationRun{
		ID:         uuid.NewString(),
		Question:   question,
		Strategy:   string(result.Strategy),
		Answer:     result.Answer,
		Score:      result.Score,
		Grounded:   result.Grounded,
		Attempts:   result.Attempts,
		FinishedAt: time.Now().UTC(),
	}
	if err := p.publisher.PublishAnswerEvaluated(ctx, run); err != nil {
		p.logger.Warn("publish answer evaluated event failed", "error", err)
	}
}
