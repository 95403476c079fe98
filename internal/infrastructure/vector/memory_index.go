package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
)

// Pattern is a labelled risk pattern held by the in-memory index.
type Pattern struct {
	ID         string
	EntityType string
	Label      string
	Embedding  []float32
}

// MemoryIndex is an in-memory cosine-similarity index. It backs development
// and tests where no external vector database is running.
type MemoryIndex struct {
	mu       sync.RWMutex
	patterns []Pattern
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add stores a pattern for later retrieval.
func (m *MemoryIndex) Add(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, p)
}

// Search returns up to topK patterns of the entity type, nearest first by
// cosine distance.
func (m *MemoryIndex) Search(ctx context.Context, embedding []float32, entityType string, topK int) ([]model.SimilarityMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]model.SimilarityMatch, 0, len(m.patterns))
	for _, p := range m.patterns {
		if p.EntityType != entityType {
			continue
		}
		sim := cosineSimilarity(embedding, p.Embedding)
		matches = append(matches, model.SimilarityMatch{
			PatternID: p.ID,
			Distance:  similarityToDistance(sim),
			Label:     p.Label,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].PatternID < matches[j].PatternID
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Ping(ctx context.Context) error {
	return ctx.Err()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
