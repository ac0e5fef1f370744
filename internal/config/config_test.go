package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOP_K", "")
	t.Setenv("TRANSFORM_MODE", "")
	t.Setenv("RETRY_SCORE_THRESHOLD", "")
	t.Setenv("GROUNDEDNESS_THRESHOLD", "")
	t.Setenv("HYBRID_ENABLED", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.TopK)
	}
	if cfg.TransformMode != "none" {
		t.Fatalf("expected default transform mode none, got %q", cfg.TransformMode)
	}
	if cfg.RetryScoreThreshold != 0.6 {
		t.Fatalf("expected default retry score threshold 0.6, got %v", cfg.RetryScoreThreshold)
	}
	if cfg.GroundednessThreshold != 0.75 {
		t.Fatalf("expected default groundedness threshold 0.75, got %v", cfg.GroundednessThreshold)
	}
	if cfg.HybridEnabled {
		t.Fatal("hybrid retrieval should be off by default")
	}
	if cfg.NATSSubject != "answers.evaluated" {
		t.Fatalf("expected default subject answers.evaluated, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOP_K", "8")
	t.Setenv("SUMMARY_TOP_K", "2")
	t.Setenv("TRANSFORM_MODE", "sub_queries")
	t.Setenv("RETRY_SCORE_THRESHOLD", "0.75")
	t.Setenv("HYBRID_ENABLED", "true")
	t.Setenv("COMPRESSION_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.TopK)
	}
	if cfg.SummaryTopK != 2 {
		t.Fatalf("expected summary top k 2, got %d", cfg.SummaryTopK)
	}
	if cfg.TransformMode != "sub_queries" {
		t.Fatalf("expected transform mode override, got %q", cfg.TransformMode)
	}
	if cfg.RetryScoreThreshold != 0.75 {
		t.Fatalf("expected retry score threshold 0.75, got %v", cfg.RetryScoreThreshold)
	}
	if !cfg.HybridEnabled || !cfg.CompressionEnabled {
		t.Fatal("expected hybrid and compression enabled")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit rps 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOP_K", "not-a-number")
	t.Setenv("HYBRID_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.TopK)
	}
	if cfg.HybridEnabled {
		t.Fatal("malformed bool should fall back to default")
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "top_k: 12\nqdrant_collection: payments_chunks\ngroundedness_threshold: 0.9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TOP_K", "")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("GROUNDEDNESS_THRESHOLD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 12 {
		t.Fatalf("expected yaml top k 12, got %d", cfg.TopK)
	}
	if cfg.QdrantCollection != "payments_chunks" {
		t.Fatalf("expected yaml collection override, got %q", cfg.QdrantCollection)
	}
	if cfg.GroundednessThreshold != 0.9 {
		t.Fatalf("expected yaml groundedness threshold 0.9, got %v", cfg.GroundednessThreshold)
	}
}

func TestLoadEnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("top_k: 12\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TOP_K", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 3 {
		t.Fatalf("env override should beat yaml, got %d", cfg.TopK)
	}
}

func TestLoadBadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("top_k: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error when CONFIG_FILE points at a missing file")
	}
}
