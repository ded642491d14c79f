package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestVectorFromPrediction(t *testing.T) {
	pred, err := structpb.NewValue(map[string]any{
		"embeddings": map[string]any{
			"values":     []any{0.25, -0.5, 1.0},
			"statistics": map[string]any{"token_count": 4.0},
		},
	})
	require.NoError(t, err)

	vec, err := vectorFromPrediction(pred)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -0.5, 1.0}, vec)
}

func TestVectorFromPrediction_Empty(t *testing.T) {
	for name, raw := range map[string]any{
		"no embeddings": map[string]any{},
		"no values":     map[string]any{"embeddings": map[string]any{}},
		"empty values":  map[string]any{"embeddings": map[string]any{"values": []any{}}},
	} {
		t.Run(name, func(t *testing.T) {
			pred, err := structpb.NewValue(raw)
			require.NoError(t, err)

			_, err = vectorFromPrediction(pred)
			assert.ErrorIs(t, err, ErrEmptyEmbedding)
		})
	}
}
