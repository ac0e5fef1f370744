package ports

import (
	"context"
	"time"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// LLM is the language-model call surface. GenerateJSON constrains output
// to JSON; the caller owns parsing into its target shape.
type LLM interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Embedder builds vectors for query and answer text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore owns collection lifecycle and query execution. Query runs a
// dense-only search unless a non-empty sparse vector is supplied, in which
// case dense and sparse results are rank-fused.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dimension int, metric string, hybridEnabled bool) error
	DescribeCollection(ctx context.Context, name string) (map[string]any, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []map[string]any, ids []string) ([]string, error)
	Query(ctx context.Context, collection string, dense []float32, sparse *domain.SparseVector, topK int, filter domain.Filter, includeVector bool) ([]domain.ScoredPoint, error)
	UpdateByID(ctx context.Context, collection, id string, payload map[string]any) error
	DeleteByID(ctx context.Context, collection string, ids []string) error
}

// GraphSearcher answers relationship and impact questions over the code
// graph, returning ready-made snippets.
type GraphSearcher interface {
	RelatedSnippets(ctx context.Context, query string, limit int) ([]domain.ContextSnippet, error)
}

// SparseEncoder turns query text into a vocabulary-mapped sparse vector;
// nil means no vocabulary term matched and callers use dense-only search.
type SparseEncoder interface {
	Encode(query string) *domain.SparseVector
}

// VocabularyLoader fetches the fixed term-index mapping at process start.
type VocabularyLoader interface {
	Load(ctx context.Context) (domain.Vocabulary, error)
}

// EvaluationRun is the audit record persisted after each pipeline run.
type EvaluationRun struct {
	ID         string
	Question   string
	Strategy   string
	Answer     string
	Score      *float64
	Grounded   *bool
	Attempts   int
	FinishedAt time.Time
}

// EvaluationStore persists quality telemetry for answered questions.
type EvaluationStore interface {
	SaveRun(ctx context.Context, run EvaluationRun) error
}

// EventPublisher emits answer-evaluated events for downstream consumers.
type EventPublisher interface {
	PublishAnswerEvaluated(ctx context.Context, run EvaluationRun) error
}

// PipelineMetrics records per-stage timings and answer outcomes.
type PipelineMetrics interface {
	ObserveStage(stage string, duration time.Duration, err error)
	RecordAnswer(strategy string, attempts int, score *float64)
}

// EventSubscriber consumes answer-evaluated events (worker side).
type EventSubscriber interface {
	SubscribeAnswerEvaluated(ctx context.Context, handler func(context.Context, EvaluationRun) error) error
}
