package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/auditorsec/risk-scoring-service/internal/application/dto"
	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// BatchAssess fans a batch out to the orchestrator with bounded concurrency.
// One item's failure never fails the batch or cancels its siblings.
type BatchAssess struct {
	orchestrator *AssessEntity
	maxInFlight  int
	active       atomic.Int32

	// ActiveProbe, when set, observes the number of concurrently active
	// assessments every time it changes. Used by tests and the in-flight gauge.
	ActiveProbe func(active int32)
}

// NewBatchAssess creates the batch coordinator. maxInFlight values below 1
// fall back to the default of 10.
func NewBatchAssess(orchestrator *AssessEntity, maxInFlight int) *BatchAssess {
	if maxInFlight < 1 {
		maxInFlight = 10
	}
	return &BatchAssess{
		orchestrator: orchestrator,
		maxInFlight:  maxInFlight,
	}
}

type batchJob struct {
	index   int
	request dto.AssessRequest
}

// Execute assesses every request and returns one outcome per input, in the
// original order. Requests beyond the concurrency bound queue in submission
// order.
func (uc *BatchAssess) Execute(ctx context.Context, requests []dto.AssessRequest) []model.BatchOutcome {
	outcomes := make([]model.BatchOutcome, len(requests))
	if len(requests) == 0 {
		return outcomes
	}

	jobs := make(chan batchJob)
	workers := uc.maxInFlight
	if len(requests) < workers {
		workers = len(requests)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes[job.index] = uc.assessOne(ctx, job.request)
			}
		}()
	}

	for i, req := range requests {
		jobs <- batchJob{index: i, request: req}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// assessOne runs a single item and converts its error, if any, into a tagged
// outcome.
func (uc *BatchAssess) assessOne(ctx context.Context, req dto.AssessRequest) model.BatchOutcome {
	uc.observe(uc.active.Add(1))
	defer func() { uc.observe(uc.active.Add(-1)) }()

	score, err := uc.orchestrator.Execute(ctx, req)
	if err != nil {
		return model.BatchOutcome{
			EntityID: req.EntityID,
			Error: &model.OutcomeError{
				Kind:    riskerr.Kind(err),
				Message: err.Error(),
			},
		}
	}
	return model.BatchOutcome{EntityID: score.EntityID, Result: &score}
}

func (uc *BatchAssess) observe(active int32) {
	if uc.ActiveProbe != nil {
		uc.ActiveProbe(active)
	}
}
