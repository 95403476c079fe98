package event

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EventTypeRiskAssessed is emitted for every completed assessment.
	EventTypeRiskAssessed = "risk.assessment.completed"

	// EventTypeHighRiskDetected is emitted when the risk level is CRITICAL.
	EventTypeHighRiskDetected = "risk.high_risk.detected"
)

// DomainEvent is the interface all published events implement.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	EntityID() string
	OccurredAt() time.Time
}

// RiskAssessed is published when an entity has been assessed.
type RiskAssessed struct {
	ID           uuid.UUID `json:"event_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Entity       string    `json:"entity_id"`
	EntityType   string    `json:"entity_type"`
	Score        float64   `json:"score"`
	RiskLevel    string    `json:"risk_level"`
	Factors      []string  `json:"factors"`
	ModelVersion string    `json:"model_version"`
	Degraded     bool      `json:"degraded"`
	AssessedAt   time.Time `json:"assessed_at"`
}

// NewRiskAssessed builds a RiskAssessed event with a fresh event ID.
func NewRiskAssessed(assessmentID uuid.UUID, entityID, entityType string, score float64, level string, factors []string, modelVersion string, degraded bool, at time.Time) RiskAssessed {
	return RiskAssessed{
		ID:           uuid.New(),
		AssessmentID: assessmentID,
		Entity:       entityID,
		EntityType:   entityType,
		Score:        score,
		RiskLevel:    level,
		Factors:      factors,
		ModelVersion: modelVersion,
		Degraded:     degraded,
		AssessedAt:   at,
	}
}

func (e RiskAssessed) EventID() uuid.UUID    { return e.ID }
func (e RiskAssessed) EventType() string     { return EventTypeRiskAssessed }
func (e RiskAssessed) EntityID() string      { return e.Entity }
func (e RiskAssessed) OccurredAt() time.Time { return e.AssessedAt }

// HighRiskDetected is published alongside RiskAssessed when an entity lands
// in the CRITICAL band, so downstream alerting does not need to re-derive it.
type HighRiskDetected struct {
	ID           uuid.UUID `json:"event_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Entity       string    `json:"entity_id"`
	EntityType   string    `json:"entity_type"`
	Score        float64   `json:"score"`
	Factors      []string  `json:"factors"`
	DetectedAt   time.Time `json:"detected_at"`
}

// NewHighRiskDetected builds a HighRiskDetected event with a fresh event ID.
func NewHighRiskDetected(assessmentID uuid.UUID, entityID, entityType string, score float64, factors []string, at time.Time) HighRiskDetected {
	return HighRiskDetected{
		ID:           uuid.New(),
		AssessmentID: assessmentID,
		Entity:       entityID,
		EntityType:   entityType,
		Score:        score,
		Factors:      factors,
		DetectedAt:   at,
	}
}

func (e HighRiskDetected) EventID() uuid.UUID    { return e.ID }
func (e HighRiskDetected) EventType() string     { return EventTypeHighRiskDetected }
func (e HighRiskDetected) EntityID() string      { return e.Entity }
func (e HighRiskDetected) OccurredAt() time.Time { return e.DetectedAt }
