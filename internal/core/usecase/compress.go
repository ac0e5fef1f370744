package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/core/ports"
)

type ContextCompressor struct {
	llm     ports.LLM
	logger  *slog.Logger
	enabled bool
}

func NewContextCompressor(llm ports.LLM, logger *slog.Logger, enabled bool) *ContextCompressor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextCompressor{llm: llm, logger: logger, enabled: enabled}
}

// Compress shrinks each snippet in the blob to the spans relevant to the
// query. Snippets are compressed independently and concurrently; output
// order always matches input order. A snippet whose extraction fails or
// comes back empty is dropped from the output, never the whole pass.
func (c *ContextCompressor) Compress(ctx context.Context, query, blob string) (string, error) {
	if !c.enabled || strings.TrimSpace(blob) == "" {
		return blob, nil
	}
	if c.llm == nil {
		return "", domain.WrapError(domain.ErrNotConfigured, "compress context", fmt.Errorf("llm service is required"))
	}

	snippets := domain.ParseSnippets(blob)
	if len(snippets) == 0 {
		return blob, nil
	}

	compressed := make([]*domain.ContextSnippet, len(snippets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, snippet := range snippets {
		g.Go(func() error {
			extracted, err := c.llm.GenerateText(gctx, buildCompressionPrompt(query, snippet))
			if err != nil {
				c.logger.Warn("snippet compression failed, dropping snippet",
					"file", snippet.FilePath, "error", err)
				return nil
			}
			extracted = strings.TrimSpace(extracted)
			if extracted == "" {
				return nil
			}
			mu.Lock()
			compressed[i] = &domain.ContextSnippet{FilePath: snippet.FilePath, Content: extracted}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("compress context: %w", err)
	}

	survivors := make([]domain.ContextSnippet, 0, len(compressed))
	for _, s := range compressed {
		if s != nil {
			survivors = append(survivors, *s)
		}
	}
	return domain.FormatSnippets(survivors), nil
}

func buildCompressionPrompt(query string, snippet domain.ContextSnippet) string {
	return fmt.Sprintf(`Extract from the following file excerpt only the parts relevant to the
question. Keep code verbatim, do not paraphrase code. If nothing is
relevant, return an empty response.

Question:
%s

File: %s
%s`, query, snippet.FilePath, snippet.Content)
}
