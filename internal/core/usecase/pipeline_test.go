package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

type stubPublisher struct {
	runs []ports.EvaluationRun
	err  error
}

func (s *stubPublisher) PublishAnswerEvaluated(_ context.Context, run ports.EvaluationRun) error {
	s.runs = append(s.runs, run)
	return s.err
}

type stubMetrics struct {
	mu      sync.Mutex
	stages  []string
	answers int
}

func (s *stubMetrics) ObserveStage(stage string, _ time.Duration, _ error) {
	s.mu.Lock()
	s.stages = append(s.stages, stage)
	s.mu.Unlock()
}

func (s *stubMetrics) RecordAnswer(string, int, *float64) { s.answers++ }

func newTestPipeline(llm *stubLLM, vectors *stubVectorStore, publisher ports.EventPublisher, metrics ports.PipelineMetrics) *AnswerPipeline {
	embedder := &stubEmbedder{}
	retriever := NewContextRetriever(embedder, vectors, nil, nil, nil, RetrieverOptions{Collection: "code_chunks", TopK: 5})
	return NewAnswerPipeline(
		NewQueryTransformer(llm, TransformNone),
		NewStrategyRouter(llm, nil),
		retriever,
		NewContextCompressor(llm, nil, false),
		NewRetryController(NewAnswerGenerator(llm), NewAnswerEvaluator(llm, embedder, EvaluatorOptions{GroundednessThreshold: 0.5}), nil, RetryOptions{ScoreThreshold: 0.6}),
		publisher,
		metrics,
		nil,
	)
}

func TestAskEndToEndBasicStrategy(t *testing.T) {
	llm := &stubLLM{
		jsonResponses: []string{
			`{"strategy":"basic","filter":null,"reasoning":"default","confidence":0.8}`,
			`{"overall":0.75,"accuracy":0.8,"relevance":0.8,"completeness":0.7,"coherence":0.9,"reasoning":"good"}`,
		},
		textResponses: []string{"processPayment validates the card and calls the gateway."},
	}
	vectors := &stubVectorStore{results: [][]domain.ScoredPoint{
		{{ID: "p-1", Score: 0.9, Payload: map[string]any{"source": "billing/payment.go", "content": "func processPayment"}}},
	}}
	publisher := &stubPublisher{}
	metrics := &stubMetrics{}
	p := newTestPipeline(llm, vectors, publisher, metrics)

	result, err := p.Ask(context.Background(), "What does the processPayment function do?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Strategy != domain.StrategyBasic {
		t.Fatalf("expected basic strategy, got %s", result.Strategy)
	}
	if result.Score == nil || *result.Score != 0.75 {
		t.Fatalf("expected score 0.75, got %v", result.Score)
	}
	if result.Grounded == nil || !*result.Grounded {
		t.Fatalf("expected grounded answer")
	}
	if result.Attempts != 1 {
		t.Fatalf("score above threshold must not retry, got %d attempts", result.Attempts)
	}
	if len(vectors.calls) != 1 {
		t.Fatalf("basic strategy with score above threshold performs one search, got %d", len(vectors.calls))
	}
	if !vectors.calls[0].filter.IsEmpty() {
		t.Fatalf("basic strategy must search unfiltered")
	}
	if len(publisher.runs) != 1 {
		t.Fatalf("expected one published run, got %d", len(publisher.runs))
	}
	if publisher.runs[0].Strategy != "basic" || publisher.runs[0].Attempts != 1 {
		t.Fatalf("unexpected published run: %+v", publisher.runs[0])
	}
	if metrics.answers != 1 || len(metrics.stages) != 5 {
		t.Fatalf("expected 5 stage observations and 1 answer record, got %d/%d", len(metrics.stages), metrics.answers)
	}
}

func TestAskEmptyRetrievalYieldsNoContextAnswer(t *testing.T) {
	llm := &stubLLM{
		jsonResponses: []string{`{"strategy":"basic","confidence":0.7}`},
	}
	p := newTestPipeline(llm, &stubVectorStore{}, nil, nil)

	result, err := p.Ask(context.Background(), "anything indexed about frobnication?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Answer != NoContextAnswer {
		t.Fatalf("expected no-context answer, got %q", result.Answer)
	}
	if result.Score != nil || result.Grounded != nil {
		t.Fatalf("no-context answer must not carry score or groundedness")
	}
	if len(llm.textPrompts) != 0 {
		t.Fatalf("no generation may happen without context, got %d calls", len(llm.textPrompts))
	}
}

func TestAskRouteFailureCarriesStage(t *testing.T) {
	llm := &stubLLM{jsonErr: errors.New("model down")}
	p := newTestPipeline(llm, &stubVectorStore{}, nil, nil)

	_, err := p.Ask(context.Background(), "q")
	if err == nil {
		t.Fatalf("expected error")
	}
	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if stageErr.Stage != StageRoute {
		t.Fatalf("expected route stage, got %s", stageErr.Stage)
	}
}

func TestAskRetrieveFailureCarriesStrategy(t *testing.T) {
	llm := &stubLLM{jsonResponses: []string{`{"strategy":"basic","confidence":0.9}`}}
	vectors := &stubVectorStore{err: errors.New("qdrant unavailable")}
	p := newTestPipeline(llm, vectors, nil, nil)

	_, err := p.Ask(context.Background(), "q")
	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if stageErr.Stage != StageRetrieve || stageErr.Strategy != "basic" {
		t.Fatalf("expected retrieve stage with basic strategy, got %s/%s", stageErr.Stage, stageErr.Strategy)
	}
}

func TestAskPublishFailureDoesNotFailTheAnswer(t *testing.T) {
	llm := &stubLLM{
		jsonResponses: []string{
			`{"strategy":"basic","confidence":0.8}`,
			`{"overall":0.9}`,
		},
		textResponses: []string{"answer"},
	}
	vectors := &stubVectorStore{results: [][]domain.ScoredPoint{
		{{ID: "p-1", Score: 1, Payload: map[string]any{"content": "code"}}},
	}}
	publisher := &stubPublisher{err: errors.New("nats down")}
	p := newTestPipeline(llm, vectors, publisher, nil)

	result, err := p.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Answer != "answer" {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
}
