package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

// Payload fields checked when resolving a match back to a file and its
// content. Order matters: explicit source wins over nested metadata.
var (
	pathPayloadFields    = []string{"source", "file_path", "path"}
	contentPayloadFields = []string{"content", "text"}
)

const (
	docTypeField       = "doc_type"
	docTypeFileSummary = "file_summary"
	docTypeChunk       = "chunk"
)

type RetrieverOptions struct {
	Collection    string
	TopK          int
	RerankTopK    int
	SummaryTopK   int
	HybridEnabled bool
}

type ContextRetriever struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
	sparse   ports.SparseEncoder
	graph    ports.GraphSearcher
	logger   *slog.Logger
	opts     RetrieverOptions
}

func NewContextRetriever(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	sparse ports.SparseEncoder,
	graph ports.GraphSearcher,
	logger *slog.Logger,
	opts RetrieverOptions,
) *ContextRetriever {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.SummaryTopK <= 0 {
		opts.SummaryTopK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextRetriever{
		embedder: embedder,
		vectors:  vectors,
		sparse:   sparse,
		graph:    graph,
		logger:   logger,
		opts:     opts,
	}
}

// Retrieve executes the decided strategy and renders the matches into a
// context blob. An empty blob is a valid outcome, not an error.
func (r *ContextRetriever) Retrieve(ctx context.Context, query string, decision *domain.RetrievalDecision) (string, error) {
	if decision == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "retrieve context", fmt.Errorf("retrieval decision is required"))
	}

	switch decision.Strategy {
	case domain.StrategyGraph:
		return r.retrieveGraph(ctx, query)
	case domain.StrategyHierarchical:
		return r.retrieveHierarchical(ctx, query)
	default:
		return r.retrieveSingle(ctx, query, decision.Filter)
	}
}

func (r *ContextRetriever) retrieveGraph(ctx context.Context, query string) (string, error) {
	if r.graph == nil {
		return "", domain.WrapError(domain.ErrNotConfigured, "graph retrieval", fmt.Errorf("graph searcher is not registered"))
	}
	snippets, err := r.graph.RelatedSnippets(ctx, query, r.opts.TopK)
	if err != nil {
		return "", fmt.Errorf("graph retrieval: %w", err)
	}
	return domain.FormatSnippets(snippets), nil
}

// retrieveSingle runs one vector query with the decision's filter. If a
// non-empty filter yields nothing the query is retried exactly once with
// the filter removed; a second empty result stands.
func (r *ContextRetriever) retrieveSingle(ctx context.Context, query string, filter domain.Filter) (string, error) {
	dense, sparse, err := r.queryVectors(ctx, query)
	if err != nil {
		return "", err
	}

	points, err := r.search(ctx, query, dense, sparse, r.opts.TopK, filter)
	if err != nil {
		return "", err
	}

	if len(points) == 0 && !filter.IsEmpty() {
		r.logger.Info("filtered search returned no results, retrying unfiltered")
		points, err = r.search(ctx, query, dense, sparse, r.opts.TopK, nil)
		if err != nil {
			return "", err
		}
	}

	return domain.FormatSnippets(pointsToSnippets(points)), nil
}

// retrieveHierarchical answers broad queries in two phases: rank file
// summaries first, then pull chunk records for the selected files. An empty
// phase A skips phase B entirely.
func (r *ContextRetriever) retrieveHierarchical(ctx context.Context, query string) (string, error) {
	dense, sparse, err := r.queryVectors(ctx, query)
	if err != nil {
		return "", err
	}

	summaryFilter := domain.Filter{docTypeField: docTypeFileSummary}
	summaries, err := r.search(ctx, query, dense, sparse, r.opts.SummaryTopK, summaryFilter)
	if err != nil {
		return "", fmt.Errorf("hierarchical summary phase: %w", err)
	}

	filePaths := make([]any, 0, len(summaries))
	seen := make(map[string]struct{}, len(summaries))
	for _, p := range summaries {
		path := payloadFilePath(p.Payload)
		if path == domain.UnknownFilePath {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		filePaths = append(filePaths, path)
	}
	if len(filePaths) == 0 {
		return "", nil
	}

	chunkFilter := domain.Filter{
		docTypeField: docTypeChunk,
		"file_path":  map[string]any{"$in": filePaths},
	}
	chunks, err := r.search(ctx, query, dense, sparse, r.opts.TopK, chunkFilter)
	if err != nil {
		return "", fmt.Errorf("hierarchical chunk phase: %w", err)
	}

	return domain.FormatSnippets(pointsToSnippets(chunks)), nil
}

// queryVectors embeds the query and, when hybrid search is enabled, builds
// its sparse vector. A nil sparse vector degrades the call to dense-only.
func (r *ContextRetriever) queryVectors(ctx context.Context, query string) ([]float32, *domain.SparseVector, error) {
	if r.embedder == nil || r.vectors == nil {
		return nil, nil, domain.WrapError(domain.ErrNotConfigured, "retrieve context", fmt.Errorf("embedder and vector store are required"))
	}
	dense, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}

	var sparse *domain.SparseVector
	if r.opts.HybridEnabled && r.sparse != nil {
		sparse = r.sparse.Encode(query)
	}
	return dense, sparse, nil
}

func (r *ContextRetriever) search(ctx context.Context, query string, dense []float32, sparse *domain.SparseVector, topK int, filter domain.Filter) ([]domain.ScoredPoint, error) {
	points, err := r.vectors.Query(ctx, r.opts.Collection, dense, sparse, topK, filter, false)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return rerankCandidates(query, points, r.opts.RerankTopK), nil
}

func pointsToSnippets(points []domain.ScoredPoint) []domain.ContextSnippet {
	snippets := make([]domain.ContextSnippet, 0, len(points))
	for _, p := range points {
		snippets = append(snippets, domain.ContextSnippet{
			FilePath: payloadFilePath(p.Payload),
			Content:  payloadContent(p.Payload),
		})
	}
	return snippets
}

func payloadFilePath(payload map[string]any) string {
	if path := lookupPayloadString(payload, pathPayloadFields); path != "" {
		return path
	}
	return domain.UnknownFilePath
}

func payloadContent(payload map[string]any) string {
	return lookupPayloadString(payload, contentPayloadFields)
}

func lookupPayloadString(payload map[string]any, fields []string) string {
	if payload == nil {
		return ""
	}
	for _, field := range fields {
		if value, ok := payload[field].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	if nested, ok := payload["metadata"].(map[string]any); ok {
		for _, field := range fields {
			if value, ok := nested[field].(string); ok && strings.TrimSpace(value) != "" {
				return value
			}
		}
	}
	return ""
}
