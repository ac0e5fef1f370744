package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotConfigured     = errors.New("collaborator not configured")
	ErrUnsupportedFilter = errors.New("unsupported filter operator")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// StageError tags an upstream failure with the pipeline stage and the
// retrieval strategy that were active when it happened.
type StageError struct {
	Stage    string
	Strategy string
	Err      error
}

func (e *StageError) Error() string {
	if e.Strategy != "" {
		return fmt.Sprintf("stage %s (strategy %s): %v", e.Stage, e.Strategy, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func WrapStage(stage, strategy string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Strategy: strategy, Err: err}
}

var retryableMessageFragments = []string{
	"connection refused",
	"timeout",
	"timed out",
	"network error",
	"fetch failed",
	"no such host",
	"connection reset",
}

// IsRetryable reports whether an upstream error is worth retrying at the
// infrastructure level. Validation and configuration errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsKind(err, ErrInvalidInput) || IsKind(err, ErrNotConfigured) || IsKind(err, ErrUnsupportedFilter) {
		return false
	}
	if IsKind(err, ErrTemporary) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableMessageFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
