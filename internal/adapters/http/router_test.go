package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dfedorov/codequery/internal/core/domain"
)

type answererFake struct {
	result   *domain.AnswerResult
	err      error
	question string
	calls    int
}

func (f *answererFake) Ask(_ context.Context, question string) (*domain.AnswerResult, error) {
	f.calls++
	f.question = question
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func postAnswer(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/answers", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAnswerEndpointReturnsResult(t *testing.T) {
	score := 0.75
	grounded := true
	fake := &answererFake{result: &domain.AnswerResult{
		Answer:   "processPayment charges the card",
		Score:    &score,
		Grounded: &grounded,
		Strategy: domain.StrategyBasic,
		Attempts: 1,
	}}
	handler := NewRouter(fake, RouterOptions{}).Handler()

	res := postAnswer(t, handler, `{"question":"What does the processPayment function do?"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if fake.question != "What does the processPayment function do?" {
		t.Fatalf("unexpected question forwarded: %q", fake.question)
	}

	var body domain.AnswerResult
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Answer == "" || body.Score == nil || *body.Score != 0.75 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAnswerEndpointRejectsMissingQuestion(t *testing.T) {
	fake := &answererFake{}
	handler := NewRouter(fake, RouterOptions{}).Handler()

	res := postAnswer(t, handler, `{"question":"  "}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("pipeline must not run for invalid input")
	}
}

func TestAnswerEndpointRejectsInvalidJSON(t *testing.T) {
	handler := NewRouter(&answererFake{}, RouterOptions{}).Handler()
	res := postAnswer(t, handler, `{`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAnswerEndpointMethodNotAllowed(t *testing.T) {
	handler := NewRouter(&answererFake{}, RouterOptions{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/v1/answers", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestAnswerEndpointMapsErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("bad")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrUnsupportedFilter, "translate", errors.New("$bogus")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrTemporary, "qdrant", errors.New("503")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := NewRouter(&answererFake{err: tc.err}, RouterOptions{}).Handler()
		res := postAnswer(t, handler, `{"question":"q"}`)
		if res.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, res.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(&answererFake{}, RouterOptions{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

