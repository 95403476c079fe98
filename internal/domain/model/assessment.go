package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentRequest is a validated request to score one entity. Parameters
// hold the typed variant for the entity type; Context is advisory only and
// never required for a valid decision.
type AssessmentRequest struct {
	EntityID   string
	EntityType string
	Parameters Parameters
	Context    map[string]string
}

// HistorySignal is an immutable snapshot of the entity's recent behavior,
// fetched fresh per request. It is never cached across requests.
type HistorySignal struct {
	EntityID    string
	Lookback    time.Duration
	EventCount  int
	AnomalyFlag bool
	LastSeen    time.Time
}

// EmptyHistory returns the neutral signal used when an entity has no history
// or when the historical store is degraded.
func EmptyHistory(entityID string, lookback time.Duration) HistorySignal {
	return HistorySignal{EntityID: entityID, Lookback: lookback}
}

// SimilarityMatch is one nearest-neighbor hit against the known risk
// patterns. Distance is non-negative; 0 means identical.
type SimilarityMatch struct {
	PatternID string
	Distance  float64
	Label     string
}

// ModelOutput is the trained model's verdict over a feature vector.
type ModelOutput struct {
	RawProbability       float64
	FeatureContributions map[string]float64
	ModelVersion         string
}

// RiskScore is the final, auditable decision artifact. For identical inputs
// (request, history, similarity, model output) every field except Timestamp
// and ID is byte-identical across runs.
type RiskScore struct {
	ID           uuid.UUID `json:"id"`
	EntityID     string    `json:"entity_id"`
	RiskLevel    string    `json:"risk_level"`
	Score        float64   `json:"score"`
	Factors      []string  `json:"factors"`
	Timestamp    time.Time `json:"timestamp"`
	ModelVersion string    `json:"model_version"`
}

// BatchOutcome is the per-item result of a batch assessment. Exactly one of
// Result and Error is set; Error carries the tagged kind so one shape never
// mixes success and failure ambiguously.
type BatchOutcome struct {
	EntityID string        `json:"entity_id"`
	Result   *RiskScore    `json:"result,omitempty"`
	Error    *OutcomeError `json:"error,omitempty"`
}

// OutcomeError is a structured per-item failure.
type OutcomeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Succeeded reports whether the outcome carries a RiskScore.
func (o BatchOutcome) Succeeded() bool {
	return o.Result != nil
}
