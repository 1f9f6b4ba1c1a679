package embedding

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamshnoo/soc-bias/domain/core"
	apperrors "github.com/iamshnoo/soc-bias/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		model string
		want  Kind
	}{
		{"glove", KindStaticLookup},
		{"FastText", KindSubwordModel},
		{" elmo ", KindContextualEncoder},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			kind, err := Validate(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestValidate_Unsupported(t *testing.T) {
	_, err := Validate("bert")
	assert.ErrorIs(t, err, core.ErrUnsupportedEmbeddingModel)
	assert.Equal(t, apperrors.CodeUnsupportedModel, apperrors.GetCode(err))
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(context.Background(), "word2vec", Options{}, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedEmbeddingModel)
}

func TestNew_MissingPaths(t *testing.T) {
	_, err := New(context.Background(), ModelGloVe, Options{}, nil)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))

	_, err = New(context.Background(), ModelFastText, Options{}, nil)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))

	_, err = New(context.Background(), ModelELMo, Options{}, nil)
	assert.Equal(t, apperrors.CodeModelLoad, apperrors.GetCode(err))
}

func TestNew_GloVe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, os.WriteFile(path, []byte("a 1 0\nb 0 1\n"), 0o644))

	provider, err := New(context.Background(), "GloVe", Options{GloVePath: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelGloVe, provider.Name())
	assert.Equal(t, 2, provider.Dimension())
}

func TestNew_LoadFailure(t *testing.T) {
	_, err := New(context.Background(), ModelGloVe, Options{GloVePath: filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Equal(t, apperrors.CodeModelLoad, apperrors.GetCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
