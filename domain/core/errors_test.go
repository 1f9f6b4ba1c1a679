package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown token wrapped in encoding failure", NewEncodingFailure("targ1", "zzz", NewUnknownTokenError("zzz")), FailureEncoding},
		{"bare unknown token", NewUnknownTokenError("zzz"), FailureEncoding},
		{"empty sentence", fmt.Errorf("attr2: %w", ErrEmptySentence), FailureEncoding},
		{"degenerate vector", NewDegenerateVectorError("attr1", "p"), FailureDegenerateVector},
		{"dimension mismatch", NewDimensionMismatchError(3, 2), FailureDegenerateVector},
		{"undefined effect size", ErrUndefinedEffectSize, FailureUndefinedEffectSize},
		{"invalid test", NewInvalidTestError("weat1", "targ1 is empty"), FailureInvalidTest},
		{"missing test", fmt.Errorf("%w: weat99", ErrTestNotFound), FailureLoad},
		{"anything else", errors.New("boom"), FailureInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureKind(tt.err))
		})
	}
}

func TestEncodingFailureKeepsCause(t *testing.T) {
	cause := NewUnknownTokenError("qwerty")
	err := NewEncodingFailure("targ2", "qwerty", cause)

	assert.ErrorIs(t, err, ErrEncodingFailure)
	assert.ErrorIs(t, err, ErrUnknownToken)
	assert.Contains(t, err.Error(), `targ2 "qwerty"`)
}

func TestUnsupportedModelError(t *testing.T) {
	err := NewUnsupportedModelError("bert")
	assert.ErrorIs(t, err, ErrUnsupportedEmbeddingModel)
	assert.Equal(t, FailureInternal, FailureKind(err))
}
