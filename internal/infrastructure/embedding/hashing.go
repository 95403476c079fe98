package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashingEmbedder maps text to a fixed-size vector by hashing whitespace
// tokens into buckets. It is deterministic and needs no external service,
// which makes it the default for development and tests. Vectors are
// L2-normalized so cosine comparisons behave.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
