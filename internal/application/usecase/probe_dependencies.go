package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/auditorsec/risk-scoring-service/internal/domain/port"
)

// DependencyStatus reports which of the three scoring dependencies answered
// a lightweight connectivity probe.
type DependencyStatus struct {
	History    bool `json:"history"`
	Similarity bool `json:"similarity"`
	Model      bool `json:"model"`
}

// Ready reports whether every dependency is reachable.
func (s DependencyStatus) Ready() bool {
	return s.History && s.Similarity && s.Model
}

// ProbeDependencies checks connectivity of the history store, the vector
// index and the model for the readiness endpoint.
type ProbeDependencies struct {
	history port.HistoryStore
	index   port.VectorIndex
	model   port.ModelClient
	timeout time.Duration
}

// NewProbeDependencies creates the probe use case.
func NewProbeDependencies(history port.HistoryStore, index port.VectorIndex, modelClient port.ModelClient, timeout time.Duration) *ProbeDependencies {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeDependencies{
		history: history,
		index:   index,
		model:   modelClient,
		timeout: timeout,
	}
}

// Execute probes all three dependencies concurrently.
func (uc *ProbeDependencies) Execute(ctx context.Context) DependencyStatus {
	probeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	var status DependencyStatus
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		status.History = uc.history.Ping(probeCtx) == nil
	}()
	go func() {
		defer wg.Done()
		status.Similarity = uc.index.Ping(probeCtx) == nil
	}()
	go func() {
		defer wg.Done()
		status.Model = uc.model.Ping(probeCtx) == nil
	}()
	wg.Wait()

	return status
}
