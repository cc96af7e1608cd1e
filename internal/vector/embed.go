package vector

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder converts text into a fixed-dimension vector. Implementations must
// be deterministic: the same input text always yields the same vector, so
// re-indexing is idempotent.
type Embedder interface {
	Embed(text string) []float32
	Dimension() int
}

// HashingEmbedder is a feature-hashing embedder: each token is hashed into a
// dimension bucket with an fnv-derived sign, and the result is L2-normalized.
// It carries no model weights, which keeps indexing reproducible across
// processes.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashingEmbedder{dim: dim}
}

func (e *HashingEmbedder) Dimension() int {
	return e.dim
}

func (e *HashingEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dim)

	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dim))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
