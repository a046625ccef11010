package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// DeterministicProvider generates embeddings from text hashes instead of a
// learned model.
//
// Texts sharing their first two significant words land in the same region of
// the vector space (cosine similarity > 0.9); unrelated texts get
// near-orthogonal vectors. This preserves the retrieval pipeline's ordering
// semantics without model downloads, which makes it the fallback provider
// when FastEmbed is unavailable and the default for tests.
//
// The provider is fully deterministic: identical text always produces the
// identical vector.
type DeterministicProvider struct {
	vectorSize int
}

// NewDeterministicProvider creates a provider emitting unit vectors of the
// given dimension.
func NewDeterministicProvider(vectorSize int) (*DeterministicProvider, error) {
	if vectorSize <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return &DeterministicProvider{vectorSize: vectorSize}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *DeterministicProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.embed(text)
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *DeterministicProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.embed(text), nil
}

// Dimension returns the embedding dimension.
func (p *DeterministicProvider) Dimension() int {
	return p.vectorSize
}

// Close is a no-op; the provider holds no resources.
func (p *DeterministicProvider) Close() error {
	return nil
}

// embed builds a unit vector whose dominant block is selected by the text's
// first two significant words, with small full-text variation inside the
// block.
func (p *DeterministicProvider) embed(text string) []float32 {
	embedding := make([]float32, p.vectorSize)

	categoryHash := hash32(categoryOf(text))
	textHash := hash32(text)

	slotSize := 16
	if p.vectorSize < 32 {
		slotSize = maxInt(1, p.vectorSize/4)
	}
	numSlots := maxInt(1, p.vectorSize/slotSize)
	slotStart := int(categoryHash%uint32(numSlots)) * slotSize

	for j := range embedding {
		if j >= slotStart && j < slotStart+slotSize {
			variation := float32((textHash+uint32(j))%100) / 10000.0
			embedding[j] = 1.0 + variation
		} else {
			// Low-amplitude background so distinct categories are not
			// exactly orthogonal, mimicking real model behavior.
			embedding[j] = float32((textHash+uint32(j*7))%10) / 1000.0
		}
	}

	normalize(embedding)
	return embedding
}

// categoryOf extracts the first two words longer than two characters.
func categoryOf(text string) string {
	words := strings.Fields(strings.ToLower(text))
	category := make([]string, 0, 2)
	for _, w := range words {
		if len(w) > 2 {
			category = append(category, w)
			if len(category) == 2 {
				break
			}
		}
	}
	return strings.Join(category, " ")
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// normalize scales the vector to unit length (chromem expects normalized
// vectors for cosine similarity).
func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= norm
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Ensure DeterministicProvider implements Provider.
var _ Provider = (*DeterministicProvider)(nil)
