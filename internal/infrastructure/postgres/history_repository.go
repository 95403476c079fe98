package postgres

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// anomalyMinDays is the minimum number of observed days before the baseline
// deviation check is trusted.
const anomalyMinDays = 7

// HistoryRepository implements port.HistoryStore against the platform's
// entity_events table. It fetches a fresh snapshot per request and never
// caches across requests.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a PostgreSQL-backed history store.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Fetch returns the behavioral aggregate for an entity over the lookback
// window. An entity with no events yields riskerr.ErrNotFound; connectivity
// failures yield riskerr.ErrDependencyUnavailable. No internal retries.
func (r *HistoryRepository) Fetch(ctx context.Context, entityID, entityType string, lookback time.Duration) (model.HistorySignal, error) {
	cutoff := time.Now().UTC().Add(-lookback)

	query := `
		SELECT date_trunc('day', occurred_at) AS day, COUNT(*), MAX(occurred_at)
		FROM entity_events
		WHERE entity_id = $1 AND entity_type = $2 AND occurred_at >= $3
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := r.pool.Query(ctx, query, entityID, entityType, cutoff)
	if err != nil {
		return model.HistorySignal{}, riskerr.Unavailable("history store", err)
	}
	defer rows.Close()

	var (
		dailyCounts []int
		total       int
		lastSeen    time.Time
	)
	for rows.Next() {
		var day time.Time
		var count int
		var maxSeen time.Time
		if err := rows.Scan(&day, &count, &maxSeen); err != nil {
			return model.HistorySignal{}, riskerr.Unavailable("history store", err)
		}
		dailyCounts = append(dailyCounts, count)
		total += count
		if maxSeen.After(lastSeen) {
			lastSeen = maxSeen
		}
	}
	if err := rows.Err(); err != nil {
		return model.HistorySignal{}, riskerr.Unavailable("history store", err)
	}

	if total == 0 {
		return model.HistorySignal{}, riskerr.ErrNotFound
	}

	return model.HistorySignal{
		EntityID:    entityID,
		Lookback:    lookback,
		EventCount:  total,
		AnomalyFlag: deviatesFromBaseline(dailyCounts),
		LastSeen:    lastSeen,
	}, nil
}

// Ping verifies store connectivity for the readiness probe.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return riskerr.Unavailable("history store", err)
	}
	return nil
}

// deviatesFromBaseline flags the latest day's activity when it exceeds the
// baseline mean by more than three standard deviations. With fewer than
// anomalyMinDays observed days there is no trustworthy baseline and the flag
// stays false.
func deviatesFromBaseline(dailyCounts []int) bool {
	if len(dailyCounts) < anomalyMinDays {
		return false
	}

	baseline := dailyCounts[:len(dailyCounts)-1]
	latest := float64(dailyCounts[len(dailyCounts)-1])

	var sum float64
	for _, c := range baseline {
		sum += float64(c)
	}
	mean := sum / float64(len(baseline))

	var variance float64
	for _, c := range baseline {
		variance += (float64(c) - mean) * (float64(c) - mean)
	}
	variance /= float64(len(baseline))
	stddev := math.Sqrt(variance)

	return latest > mean+3*stddev
}
