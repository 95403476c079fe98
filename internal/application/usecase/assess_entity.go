package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auditorsec/risk-scoring-service/internal/application/dto"
	"github.com/auditorsec/risk-scoring-service/internal/domain/event"
	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/port"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
	"github.com/auditorsec/risk-scoring-service/internal/domain/service"
	"github.com/auditorsec/risk-scoring-service/internal/domain/valueobject"
)

// FactorTimedOut marks a decision completed under the overall ceiling.
const FactorTimedOut = "assessment timed out"

// ModelVersionUnavailable stamps decisions made without a model run, so the
// audit trail never carries an empty version.
const ModelVersionUnavailable = "unavailable"

// AssessTimeouts carries the per-dependency timeouts of one assessment. The
// overall ceiling is the larger of the two parallel fetches plus scoring.
type AssessTimeouts struct {
	History    time.Duration
	Similarity time.Duration
	Model      time.Duration
}

// Ceiling returns the hard upper bound for a whole assessment.
func (t AssessTimeouts) Ceiling() time.Duration {
	fetch := t.History
	if t.Similarity > fetch {
		fetch = t.Similarity
	}
	return fetch + t.Model
}

// AssessEntity orchestrates one assessment: it fetches history and
// similarity in parallel, joins, scores via the model, combines, and
// publishes the decision. Dependency failures degrade the decision; only a
// model failure is fatal to the request.
type AssessEntity struct {
	history   port.HistoryStore
	embedder  port.Embedder
	index     port.VectorIndex
	model     port.ModelClient
	combiner  *service.Combiner
	publisher port.EventPublisher
	audit     port.AssessmentStore
	logger    *slog.Logger

	lookback time.Duration
	topK     int
	timeouts AssessTimeouts

	// Completed, when set, observes every successful assessment. Used for
	// the assessment counters and latency histogram.
	Completed func(riskLevel string, degraded bool, elapsed time.Duration)

	async sync.WaitGroup
}

// NewAssessEntity wires the orchestrator. The audit store may be nil when no
// audit trail is configured.
func NewAssessEntity(
	history port.HistoryStore,
	embedder port.Embedder,
	index port.VectorIndex,
	modelClient port.ModelClient,
	combiner *service.Combiner,
	publisher port.EventPublisher,
	audit port.AssessmentStore,
	lookback time.Duration,
	topK int,
	timeouts AssessTimeouts,
	logger *slog.Logger,
) *AssessEntity {
	return &AssessEntity{
		history:   history,
		embedder:  embedder,
		index:     index,
		model:     modelClient,
		combiner:  combiner,
		publisher: publisher,
		audit:     audit,
		lookback:  lookback,
		topK:      topK,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// historyOutcome is the join-point result of the history fetch.
type historyOutcome struct {
	signal      model.HistorySignal
	unavailable bool
}

// similarityOutcome is the join-point result of the similarity search.
type similarityOutcome struct {
	matches     []model.SimilarityMatch
	unavailable bool
}

// Execute runs one assessment end to end and returns the decision artifact.
func (uc *AssessEntity) Execute(ctx context.Context, req dto.AssessRequest) (model.RiskScore, error) {
	started := time.Now()

	request, err := req.ToModel()
	if err != nil {
		return model.RiskScore{}, err
	}

	ceilingCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Ceiling())
	defer cancel()

	// History and similarity run concurrently, each under its own timeout.
	// This is a join point: scoring starts only once both have completed or
	// the ceiling has fired.
	historyCh := make(chan historyOutcome, 1)
	similarityCh := make(chan similarityOutcome, 1)

	go func() {
		historyCh <- uc.fetchHistory(ceilingCtx, request)
	}()
	go func() {
		similarityCh <- uc.searchSimilar(ceilingCtx, request)
	}()

	var history historyOutcome
	var similarity similarityOutcome
	timedOut := false

	for received := 0; received < 2 && !timedOut; {
		select {
		case history = <-historyCh:
			received++
		case similarity = <-similarityCh:
			received++
		case <-ceilingCtx.Done():
			// Abandon whatever is still in flight; no partial result leaks.
			history.unavailable = true
			similarity.unavailable = true
			timedOut = true
		}
	}

	var output model.ModelOutput
	if !timedOut {
		features := service.AssembleFeatures(request, history.signal, similarity.matches)

		modelCtx, cancelModel := context.WithTimeout(ceilingCtx, uc.timeouts.Model)
		output, err = uc.model.Score(modelCtx, features)
		cancelModel()
		if err != nil {
			if ceilingCtx.Err() != nil {
				timedOut = true
			} else {
				// Model failure is the one fatal dependency error: without a
				// probability there is nothing left to degrade to.
				uc.logger.Error("model scoring failed",
					slog.String("entity_id", request.EntityID),
					slog.String("error", err.Error()),
				)
				return model.RiskScore{}, err
			}
		}
	}

	in := service.CombinerInput{
		Model:                 output,
		History:               history.signal,
		HistoryUnavailable:    history.unavailable,
		Matches:               similarity.matches,
		SimilarityUnavailable: similarity.unavailable,
	}
	if timedOut {
		// Ceiling exceeded: complete degraded with the minimal score the
		// policy yields for zeroed signals. The model never ran, so no model
		// factors or version may appear in the artifact.
		in = service.CombinerInput{
			ModelUnavailable:      true,
			HistoryUnavailable:    true,
			SimilarityUnavailable: true,
		}
	}

	result := uc.combiner.Compute(in)

	factors := result.Factors
	modelVersion := output.ModelVersion
	if timedOut {
		factors = append(factors, FactorTimedOut)
		modelVersion = ModelVersionUnavailable
	}

	score := model.RiskScore{
		ID:           uuid.New(),
		EntityID:     request.EntityID,
		RiskLevel:    result.Level.String(),
		Score:        result.Score,
		Factors:      factors,
		Timestamp:    time.Now().UTC(),
		ModelVersion: modelVersion,
	}

	degraded := history.unavailable || similarity.unavailable || timedOut
	uc.finish(request, score, result.Level, degraded)

	if uc.Completed != nil {
		uc.Completed(score.RiskLevel, degraded, time.Since(started))
	}
	return score, nil
}

// fetchHistory resolves the history signal, treating "no history" as a valid
// empty signal and anything else as a degraded fetch.
func (uc *AssessEntity) fetchHistory(ctx context.Context, request model.AssessmentRequest) historyOutcome {
	fetchCtx, cancel := context.WithTimeout(ctx, uc.timeouts.History)
	defer cancel()

	signal, err := uc.history.Fetch(fetchCtx, request.EntityID, request.EntityType, uc.lookback)
	if err != nil {
		if errors.Is(err, riskerr.ErrNotFound) {
			return historyOutcome{signal: model.EmptyHistory(request.EntityID, uc.lookback)}
		}
		uc.logger.Warn("history lookup degraded",
			slog.String("entity_id", request.EntityID),
			slog.String("error", err.Error()),
		)
		return historyOutcome{signal: model.EmptyHistory(request.EntityID, uc.lookback), unavailable: true}
	}
	return historyOutcome{signal: signal}
}

// searchSimilar embeds the canonical parameter text and queries the vector
// index. An empty match list is a valid "no similarity signal".
func (uc *AssessEntity) searchSimilar(ctx context.Context, request model.AssessmentRequest) similarityOutcome {
	searchCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Similarity)
	defer cancel()

	embedding, err := uc.embedder.Embed(searchCtx, request.Parameters.CanonicalText())
	if err != nil {
		uc.logger.Warn("embedding degraded",
			slog.String("entity_id", request.EntityID),
			slog.String("error", err.Error()),
		)
		return similarityOutcome{unavailable: true}
	}

	matches, err := uc.index.Search(searchCtx, embedding, request.EntityType, uc.topK)
	if err != nil {
		uc.logger.Warn("similarity search degraded",
			slog.String("entity_id", request.EntityID),
			slog.String("error", err.Error()),
		)
		return similarityOutcome{unavailable: true}
	}
	return similarityOutcome{matches: matches}
}

// finish publishes decision events and records the audit row. Both are
// detached from the caller path: failures are logged and swallowed.
func (uc *AssessEntity) finish(request model.AssessmentRequest, score model.RiskScore, level valueobject.RiskLevel, degraded bool) {
	events := []event.DomainEvent{
		event.NewRiskAssessed(score.ID, score.EntityID, request.EntityType,
			score.Score, score.RiskLevel, score.Factors, score.ModelVersion, degraded, score.Timestamp),
	}
	if level.AtLeast(valueobject.RiskLevelCritical) {
		events = append(events, event.NewHighRiskDetected(score.ID, score.EntityID, request.EntityType,
			score.Score, score.Factors, score.Timestamp))
	}

	uc.async.Add(1)
	go func() {
		defer uc.async.Done()

		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := uc.publisher.Publish(publishCtx, events...); err != nil {
			uc.logger.Error("event publication failed",
				slog.String("entity_id", score.EntityID),
				slog.String("error", err.Error()),
			)
		}

		if uc.audit != nil {
			if err := uc.audit.Record(publishCtx, score); err != nil {
				uc.logger.Error("audit record failed",
					slog.String("entity_id", score.EntityID),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Drain blocks until all detached publications have completed. Called during
// graceful shutdown and by tests.
func (uc *AssessEntity) Drain() {
	uc.async.Wait()
}
