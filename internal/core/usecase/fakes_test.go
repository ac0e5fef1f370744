package usecase

import (
	"context"

	"github.com/dfedorov/codequery/internal/core/domain"
)

// Shared hand-rolled fakes for the pipeline use cases.

type stubLLM struct {
	textResponses []string
	jsonResponses []string
	textErr       error
	jsonErr       error

	textPrompts []string
	jsonPrompts []string
}

func (s *stubLLM) GenerateText(_ context.Context, prompt string) (string, error) {
	s.textPrompts = append(s.textPrompts, prompt)
	if s.textErr != nil {
		return "", s.textErr
	}
	if len(s.textResponses) == 0 {
		return "", nil
	}
	resp := s.textResponses[0]
	if len(s.textResponses) > 1 {
		s.textResponses = s.textResponses[1:]
	}
	return resp, nil
}

func (s *stubLLM) GenerateJSON(_ context.Context, prompt string) (string, error) {
	s.jsonPrompts = append(s.jsonPrompts, prompt)
	if s.jsonErr != nil {
		return "", s.jsonErr
	}
	if len(s.jsonResponses) == 0 {
		return "{}", nil
	}
	resp := s.jsonResponses[0]
	if len(s.jsonResponses) > 1 {
		s.jsonResponses = s.jsonResponses[1:]
	}
	return resp, nil
}

type stubEmbedder struct {
	queryVector []float32
	vectors     map[string][]float32
	embedErr    error
	queryErr    error

	embedCalls int
	queryCalls int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.embedCalls++
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if v, ok := s.vectors[text]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, []float32{1, 0, 0})
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	s.queryCalls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.queryVector != nil {
		return s.queryVector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type vectorQueryCall struct {
	collection string
	dense      []float32
	sparse     *domain.SparseVector
	topK       int
	filter     domain.Filter
}

type stubVectorStore struct {
	results [][]domain.ScoredPoint
	err     error

	calls []vectorQueryCall
}

func (s *stubVectorStore) CreateCollection(context.Context, string, int, string, bool) error {
	return nil
}
func (s *stubVectorStore) DescribeCollection(context.Context, string) (map[string]any, error) {
	return nil, nil
}
func (s *stubVectorStore) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (s *stubVectorStore) DeleteCollection(context.Context, string) error    { return nil }
func (s *stubVectorStore) Upsert(context.Context, string, [][]float32, []map[string]any, []string) ([]string, error) {
	return nil, nil
}
func (s *stubVectorStore) UpdateByID(context.Context, string, string, map[string]any) error {
	return nil
}
func (s *stubVectorStore) DeleteByID(context.Context, string, []string) error { return nil }

func (s *stubVectorStore) Query(_ context.Context, collection string, dense []float32, sparse *domain.SparseVector, topK int, filter domain.Filter, _ bool) ([]domain.ScoredPoint, error) {
	s.calls = append(s.calls, vectorQueryCall{
		collection: collection,
		dense:      dense,
		sparse:     sparse,
		topK:       topK,
		filter:     filter.Clone(),
	})
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return nil, nil
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result, nil
}

type stubSparseEncoder struct {
	vector *domain.SparseVector
	calls  int
}

func (s *stubSparseEncoder) Encode(string) *domain.SparseVector {
	s.calls++
	return s.vector
}

type stubGraphSearcher struct {
	snippets []domain.ContextSnippet
	err      error

	query string
	limit int
	calls int
}

func (s *stubGraphSearcher) RelatedSnippets(_ context.Context, query string, limit int) ([]domain.ContextSnippet, error) {
	s.calls++
	s.query = query
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.snippets, nil
}
