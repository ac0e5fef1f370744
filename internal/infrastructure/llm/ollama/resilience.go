package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/dfedorov/codequery/internal/core/domain"
	"github.com/dfedorov/codequery/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ClassifyError decides whether an Ollama call failure is worth retrying
// and whether the circuit breaker should count it.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	if domain.IsRetryable(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// wrapTemporaryIfNeeded marks retryable upstream failures with the
// temporary error kind so pipeline stages and callers can classify them
// without knowing about HTTP.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	class := ClassifyError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

// ResilientClient decorates Client with retry and circuit breaking.
// Generation and embedding run behind separate breaker keys so a broken
// generation model does not block embedding traffic.
type ResilientClient struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientClient(client *Client, executor *resilience.Executor) *ResilientClient {
	return &ResilientClient{client: client, executor: executor}
}

func (r *ResilientClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out string
	err := r.executor.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		var callErr error
		out, callErr = r.client.GenerateText(ctx, prompt)
		return callErr
	}, ClassifyError)
	return out, err
}

func (r *ResilientClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	var out string
	err := r.executor.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		var callErr error
		out, callErr = r.client.GenerateJSON(ctx, prompt)
		return callErr
	}, ClassifyError)
	return out, err
}

func (r *ResilientClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.executor.Execute(ctx, "ollama.embed", func(ctx context.Context) error {
		var callErr error
		out, callErr = r.client.Embed(ctx, texts)
		return callErr
	}, ClassifyError)
	return out, err
}

func (r *ResilientClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.executor.Execute(ctx, "ollama.embed", func(ctx context.Context) error {
		var callErr error
		out, callErr = r.client.EmbedQuery(ctx, text)
		return callErr
	}, ClassifyError)
	return out, err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
