package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dfedorov/codequery/internal/core/domain"
)

func TestGenerateJSONRequestsJSONFormat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{"response":"{\"strategy\":\"basic\"}"}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "llama3.1:8b", "nomic-embed-text")
	got, err := client.GenerateJSON(context.Background(), "decide")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if captured["format"] != "json" {
		t.Fatalf("expected format json in request, got %v", captured)
	}
	if got != `{"strategy":"basic"}` {
		t.Fatalf("unexpected response %q", got)
	}
}

func TestGenerateServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL, "gen", "embed")
	_, err := client.GenerateText(context.Background(), "hi")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error for 503, got %v", err)
	}
}

func TestGenerateClientErrorIsNotTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := New(srv.URL, "gen", "embed")
	_, err := client.GenerateText(context.Background(), "hi")
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not classify as temporary, got %v", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client := New("http://localhost:11434", "gen", "embed")
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("empty input must short-circuit: %v, %v", vectors, err)
	}
}
