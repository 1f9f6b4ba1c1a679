package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Numeric errors
	ErrDegenerateVector    = errors.New("degenerate vector: zero or non-finite norm")
	ErrUndefinedEffectSize = errors.New("effect size undefined: zero pooled standard deviation")
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")

	// Encoding errors
	ErrEncodingFailure = errors.New("encoding failure")
	ErrUnknownToken    = errors.New("unknown token")
	ErrEmptySentence   = errors.New("empty sentence")

	// Test data errors
	ErrInvalidTest  = errors.New("invalid test")
	ErrTestNotFound = errors.New("test not found")

	// Configuration errors
	ErrUnsupportedEmbeddingModel = errors.New("unsupported embedding model")
)

// Failure kinds recorded in place of a result when a single test fails
const (
	FailureEncoding            = "encoding_failure"
	FailureDegenerateVector    = "degenerate_vector"
	FailureUndefinedEffectSize = "undefined_effect_size"
	FailureInvalidTest         = "invalid_test"
	FailureLoad                = "load_failure"
	FailureInternal            = "internal_error"
)

// Error constructors with context
func NewDegenerateVectorError(set, input string) error {
	return fmt.Errorf("%w: %s %q", ErrDegenerateVector, set, input)
}

func NewDimensionMismatchError(want, got int) error {
	return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, want, got)
}

// NewEncodingFailure wraps a provider error for one input of one concept set.
func NewEncodingFailure(set, input string, cause error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrEncodingFailure, set, input, cause)
}

func NewUnknownTokenError(token string) error {
	return fmt.Errorf("%w: %q", ErrUnknownToken, token)
}

func NewInvalidTestError(testID, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidTest, testID, reason)
}

func NewUnsupportedModelError(model string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedEmbeddingModel, model)
}

// Error checking helpers
func IsEncodingError(err error) bool {
	return errors.Is(err, ErrEncodingFailure) ||
		errors.Is(err, ErrUnknownToken) ||
		errors.Is(err, ErrEmptySentence)
}

// FailureKind classifies an error that failed a single test.
// Encoding is checked first since an encoding failure may wrap a provider cause.
func FailureKind(err error) string {
	switch {
	case IsEncodingError(err):
		return FailureEncoding
	case errors.Is(err, ErrDegenerateVector), errors.Is(err, ErrDimensionMismatch):
		return FailureDegenerateVector
	case errors.Is(err, ErrUndefinedEffectSize):
		return FailureUndefinedEffectSize
	case errors.Is(err, ErrInvalidTest):
		return FailureInvalidTest
	case errors.Is(err, ErrTestNotFound):
		return FailureLoad
	default:
		return FailureInternal
	}
}
