package usecase

import (
	"testing"

	"github.com/dfedorov/codequery/internal/core/domain"
)

func TestRerankCandidatesChangesOrder(t *testing.T) {
	points := []domain.ScoredPoint{
		{ID: "p-1", Score: 0.95, Payload: map[string]any{"source": "notes/generic.md", "content": "unrelated text"}},
		{ID: "p-2", Score: 1.0, Payload: map[string]any{"source": "billing/payment.go", "content": "func processPayment handles the payment flow"}},
	}

	reranked := rerankCandidates("payment processing", points, 2)
	if len(reranked) != 2 {
		t.Fatalf("expected 2 reranked candidates, got %d", len(reranked))
	}
	if reranked[0].ID != "p-2" {
		t.Fatalf("expected p-2 first after rerank, got %s", reranked[0].ID)
	}
}

func TestRerankCandidatesLeavesTailUntouched(t *testing.T) {
	points := []domain.ScoredPoint{
		{ID: "p-1", Score: 0.9, Payload: map[string]any{"content": "alpha"}},
		{ID: "p-2", Score: 0.8, Payload: map[string]any{"content": "beta"}},
		{ID: "p-3", Score: 0.7, Payload: map[string]any{"content": "gamma"}},
	}

	reranked := rerankCandidates("alpha", points, 2)
	if len(reranked) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(reranked))
	}
	if reranked[2].ID != "p-3" {
		t.Fatalf("expected tail candidate p-3 to keep its position, got %s", reranked[2].ID)
	}
}

func TestRerankCandidatesHandlesEmptyInput(t *testing.T) {
	out := rerankCandidates("payment", nil, 10)
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}
