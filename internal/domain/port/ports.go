package port

import (
	"context"
	"time"

	"github.com/auditorsec/risk-scoring-service/internal/domain/event"
	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
)

// HistoryStore is the port to the historical entity store.
type HistoryStore interface {
	// Fetch returns the behavioral snapshot for an entity over the lookback
	// window. When the entity has no history it returns riskerr.ErrNotFound;
	// the caller substitutes an empty signal. Fetch must not retry internally.
	Fetch(ctx context.Context, entityID, entityType string, lookback time.Duration) (model.HistorySignal, error)

	// Ping verifies store connectivity for the readiness probe.
	Ping(ctx context.Context) error
}

// Embedder turns canonical parameter text into an embedding vector. The
// embedding algorithm itself is external to this service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the port to the index of known risk pattern embeddings.
type VectorIndex interface {
	// Search returns up to topK matches for the embedding, nearest first.
	// An empty result is valid and means "no similarity signal".
	Search(ctx context.Context, embedding []float32, entityType string, topK int) ([]model.SimilarityMatch, error)

	// Ping verifies index connectivity for the readiness probe.
	Ping(ctx context.Context) error
}

// ModelClient invokes the trained scoring model. Score is a pure function of
// the feature vector for a fixed model version.
type ModelClient interface {
	// Score returns the raw probability and per-feature contributions. It
	// fails with riskerr.ErrScoring only on malformed feature vectors.
	Score(ctx context.Context, features map[string]float64) (model.ModelOutput, error)

	// Ping verifies model availability for the readiness probe.
	Ping(ctx context.Context) error
}

// EventPublisher publishes decision events to the platform bus.
// At-least-once, fire-and-forget from the core's perspective.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// AssessmentStore persists completed assessments for the audit trail.
type AssessmentStore interface {
	Record(ctx context.Context, score model.RiskScore) error
	ListByEntity(ctx context.Context, entityID string, limit int) ([]model.RiskScore, error)
}
