package embeddings_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/clinicd/internal/embeddings"
)

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func TestDeterministicProvider_Deterministic(t *testing.T) {
	provider, err := embeddings.NewDeterministicProvider(384)
	require.NoError(t, err)

	ctx := context.Background()

	first, err := provider.EmbedQuery(ctx, "Glucose 128 mg/dL, HbA1c: 5.9%")
	require.NoError(t, err)
	second, err := provider.EmbedQuery(ctx, "Glucose 128 mg/dL, HbA1c: 5.9%")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDeterministicProvider_UnitVectors(t *testing.T) {
	provider, err := embeddings.NewDeterministicProvider(384)
	require.NoError(t, err)

	embedding, err := provider.EmbedQuery(context.Background(), "blood sugar levels")
	require.NoError(t, err)
	require.Len(t, embedding, 384)

	var sumSq float64
	for _, x := range embedding {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-4)
}

func TestDeterministicProvider_SimilarityStructure(t *testing.T) {
	provider, err := embeddings.NewDeterministicProvider(384)
	require.NoError(t, err)

	ctx := context.Background()

	glucoseA, err := provider.EmbedQuery(ctx, "glucose levels from September lab report")
	require.NoError(t, err)
	glucoseB, err := provider.EmbedQuery(ctx, "glucose levels measured in December")
	require.NoError(t, err)
	unrelated, err := provider.EmbedQuery(ctx, "prescription refill for Metformin")
	require.NoError(t, err)

	assert.Greater(t, cosine(glucoseA, glucoseB), 0.9,
		"texts sharing leading words should be close")
	assert.Less(t, cosine(glucoseA, unrelated), 0.5,
		"unrelated texts should be far apart")
}

func TestDeterministicProvider_EmbedDocuments(t *testing.T) {
	provider, err := embeddings.NewDeterministicProvider(64)
	require.NoError(t, err)

	out, err := provider.EmbedDocuments(context.Background(), []string{"one text", "another text"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 64)
}

func TestDeterministicProvider_Validation(t *testing.T) {
	_, err := embeddings.NewDeterministicProvider(0)
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)

	provider, err := embeddings.NewDeterministicProvider(16)
	require.NoError(t, err)

	_, err = provider.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)

	_, err = provider.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)
}

func TestNewProvider(t *testing.T) {
	t.Run("defaults to deterministic", func(t *testing.T) {
		provider, err := embeddings.NewProvider(embeddings.Config{})
		require.NoError(t, err)
		defer provider.Close()

		assert.Equal(t, 384, provider.Dimension())
	})

	t.Run("honors vector size", func(t *testing.T) {
		provider, err := embeddings.NewProvider(embeddings.Config{Provider: "deterministic", VectorSize: 128})
		require.NoError(t, err)
		defer provider.Close()

		assert.Equal(t, 128, provider.Dimension())
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := embeddings.NewProvider(embeddings.Config{Provider: "openai"})
		assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
	})
}
