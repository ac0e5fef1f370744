package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dfedorov/codequery/internal/config"
	"github.com/dfedorov/codequery/internal/core/ports"
	"github.com/dfedorov/codequery/internal/core/usecase"
	"github.com/dfedorov/codequery/internal/infrastructure/graph/neo4j"
	"github.com/dfedorov/codequery/internal/infrastructure/llm/ollama"
	"github.com/dfedorov/codequery/internal/infrastructure/queue/nats"
	"github.com/dfedorov/codequery/internal/infrastructure/repository/postgres"
	"github.com/dfedorov/codequery/internal/infrastructure/resilience"
	"github.com/dfedorov/codequery/internal/infrastructure/sparse"
	"github.com/dfedorov/codequery/internal/infrastructure/vector/qdrant"
	"github.com/dfedorov/codequery/internal/infrastructure/vocab"
	"github.com/dfedorov/codequery/internal/observability/metrics"
)

// App wires the pipeline and its adapters for the api and mcp binaries.
// Optional backends (graph search, the sparse vocabulary) degrade with a
// warning instead of failing startup: the dense retrieval path must stay
// available even when those are down.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Pipeline ports.QuestionAnswerer
	Queue    *nats.Queue
	EvalRepo *postgres.EvaluationRepository

	PipelineMetrics *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	evalRepo := postgres.NewEvaluationRepository(db)
	if err := evalRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewResilientClient(
		ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel),
		executor,
	)
	vectorStore := qdrant.New(cfg.QdrantURL)

	var (
		graphSearcher ports.GraphSearcher
		graphCloser   *neo4j.Searcher
	)
	if cfg.Neo4jPassword != "" {
		searcher, err := neo4j.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			logger.Warn("neo4j unavailable, graph strategy disabled", "error", err)
		} else {
			graphSearcher = searcher
			graphCloser = searcher
		}
	} else {
		logger.Info("neo4j credentials not set, graph strategy disabled")
	}

	var sparseEncoder ports.SparseEncoder
	hybridEnabled := cfg.HybridEnabled
	if hybridEnabled {
		vocabulary, err := vocab.New(cfg.VocabularyLocation).Load(ctx)
		if err != nil {
			logger.Warn("vocabulary unavailable, falling back to dense-only retrieval", "error", err)
			hybridEnabled = false
		} else {
			sparseEncoder = sparse.NewEncoder(nil, vocabulary, qdrant.SparseVectorName)
		}
	}

	pipelineMetrics := metrics.NewPipelineMetrics("api")

	transformer := usecase.NewQueryTransformer(ollamaClient, cfg.TransformMode)
	router := usecase.NewStrategyRouter(ollamaClient, logger)
	retriever := usecase.NewContextRetriever(ollamaClient, vectorStore, sparseEncoder, graphSearcher, logger, usecase.RetrieverOptions{
		Collection:    cfg.QdrantCollection,
		TopK:          cfg.TopK,
		RerankTopK:    cfg.RerankTopK,
		SummaryTopK:   cfg.SummaryTopK,
		HybridEnabled: hybridEnabled,
	})
	compressor := usecase.NewContextCompressor(ollamaClient, logger, cfg.CompressionEnabled)
	generator := usecase.NewAnswerGenerator(ollamaClient)
	evaluator := usecase.NewAnswerEvaluator(ollamaClient, ollamaClient, usecase.EvaluatorOptions{
		GroundednessThreshold: cfg.GroundednessThreshold,
	})
	controller := usecase.NewRetryController(generator, evaluator, logger, usecase.RetryOptions{
		ScoreThreshold: cfg.RetryScoreThreshold,
	})

	pipeline := usecase.NewAnswerPipeline(
		transformer,
		router,
		retriever,
		compressor,
		controller,
		queue,
		pipelineMetrics,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Pipeline: pipeline,
		Queue:    queue,
		EvalRepo: evalRepo,

		PipelineMetrics: pipelineMetrics,

		closeFn: func() {
			queue.Close()
			if graphCloser != nil {
				_ = graphCloser.Close(context.Background())
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
