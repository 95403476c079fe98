package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/valueobject"
)

// AssessmentRepository persists completed assessments as the audit trail.
// Writes happen off the caller path (best effort); reads serve the
// assessments listing endpoint.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a PostgreSQL-backed assessment store.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// Record inserts one completed assessment.
func (r *AssessmentRepository) Record(ctx context.Context, score model.RiskScore) error {
	factorsJSON, err := json.Marshal(score.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}

	query := `
		INSERT INTO risk_assessments (
			id, entity_id, risk_level, score, factors, model_version, assessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.pool.Exec(ctx, query,
		score.ID,
		score.EntityID,
		score.RiskLevel,
		score.Score,
		factorsJSON,
		score.ModelVersion,
		score.Timestamp,
	); err != nil {
		return fmt.Errorf("record assessment: %w", err)
	}

	return nil
}

// ListByEntity returns the most recent assessments for an entity, newest first.
func (r *AssessmentRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]model.RiskScore, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, entity_id, risk_level, score, factors, model_version, assessed_at
		FROM risk_assessments
		WHERE entity_id = $1
		ORDER BY assessed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var scores []model.RiskScore
	for rows.Next() {
		var s model.RiskScore
		var factorsJSON []byte
		if err := rows.Scan(&s.ID, &s.EntityID, &s.RiskLevel, &s.Score, &factorsJSON, &s.ModelVersion, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if err := json.Unmarshal(factorsJSON, &s.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal factors: %w", err)
		}
		// Audit rows must round-trip through the closed level set; a row
		// that does not parse is corruption, not data.
		if _, err := valueobject.RiskLevelFromString(s.RiskLevel); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", s.ID, err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}

	return scores, nil
}
