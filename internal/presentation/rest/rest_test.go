package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditorsec/risk-scoring-service/internal/application/dto"
	"github.com/auditorsec/risk-scoring-service/internal/application/usecase"
	"github.com/auditorsec/risk-scoring-service/internal/domain/event"
	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
	"github.com/auditorsec/risk-scoring-service/internal/domain/service"
	"github.com/auditorsec/risk-scoring-service/internal/domain/valueobject"
)

type stubHistoryStore struct{ pingErr error }

func (s *stubHistoryStore) Fetch(_ context.Context, _, _ string, _ time.Duration) (model.HistorySignal, error) {
	return model.HistorySignal{}, riskerr.ErrNotFound
}
func (s *stubHistoryStore) Ping(_ context.Context) error { return s.pingErr }

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubVectorIndex struct{ pingErr error }

func (s *stubVectorIndex) Search(_ context.Context, _ []float32, _ string, _ int) ([]model.SimilarityMatch, error) {
	return nil, nil
}
func (s *stubVectorIndex) Ping(_ context.Context) error { return s.pingErr }

type stubModelClient struct {
	probability float64
	err         error
	pingErr     error
}

func (s *stubModelClient) Score(_ context.Context, _ map[string]float64) (model.ModelOutput, error) {
	if s.err != nil {
		return model.ModelOutput{}, s.err
	}
	return model.ModelOutput{RawProbability: s.probability, ModelVersion: "0.1.0"}, nil
}
func (s *stubModelClient) Ping(_ context.Context) error { return s.pingErr }

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _ ...event.DomainEvent) error { return nil }

type memoryAuditStore struct {
	mu     sync.Mutex
	scores []model.RiskScore
	err    error
}

func (s *memoryAuditStore) Record(_ context.Context, score model.RiskScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, score)
	return nil
}

func (s *memoryAuditStore) ListByEntity(_ context.Context, entityID string, _ int) ([]model.RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []model.RiskScore
	for _, sc := range s.scores {
		if sc.EntityID == entityID {
			out = append(out, sc)
		}
	}
	return out, nil
}

type testEnv struct {
	mux     *http.ServeMux
	history *stubHistoryStore
	index   *stubVectorIndex
	mclient *stubModelClient
	audit   *memoryAuditStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	combiner, err := service.NewCombiner(service.DefaultWeights(), valueobject.DefaultThresholds(), 5)
	require.NoError(t, err)

	env := &testEnv{
		history: &stubHistoryStore{},
		index:   &stubVectorIndex{},
		mclient: &stubModelClient{probability: 0.5},
		audit:   &memoryAuditStore{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	timeouts := usecase.AssessTimeouts{History: time.Second, Similarity: time.Second, Model: time.Second}

	assess := usecase.NewAssessEntity(env.history, stubEmbedder{}, env.index, env.mclient,
		combiner, noopPublisher{}, env.audit, 30*24*time.Hour, 5, timeouts, logger)
	batch := usecase.NewBatchAssess(assess, 10)
	probe := usecase.NewProbeDependencies(env.history, env.index, env.mclient, time.Second)

	env.mux = http.NewServeMux()
	NewAssessmentHandler(assess, batch, env.audit, logger).RegisterRoutes(env.mux)
	NewHealthHandler(probe).RegisterRoutes(env.mux)
	return env
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAssessEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.mux, "/api/v1/risk/assess", dto.AssessRequest{
		EntityID:   "tx-1001",
		EntityType: "transaction",
		Parameters: map[string]any{"amount": 9999},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.AssessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tx-1001", resp.EntityID)
	assert.Equal(t, "MEDIUM", resp.RiskLevel)
	assert.InDelta(t, 0.35, resp.Score, 1e-9)
	assert.Equal(t, []string{"model: baseline probability 0.5"}, resp.Factors)
	assert.Equal(t, "0.1.0", resp.ModelVersion)
}

func TestAssessEndpoint_MissingEntityID(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.mux, "/api/v1/risk/assess", dto.AssessRequest{
		EntityType: "transaction",
		Parameters: map[string]any{"amount": 10},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ValidationError", resp.Error)
}

func TestAssessEndpoint_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/assess", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssessEndpoint_ScoringFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mclient.err = riskerr.Scoringf("model rejected vector")

	rec := postJSON(t, env.mux, "/api/v1/risk/assess", dto.AssessRequest{
		EntityID:   "tx-1",
		EntityType: "transaction",
		Parameters: map[string]any{"amount": 10},
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ScoringError", resp.Error)
}

func TestAssessEndpoint_ModelUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.mclient.err = riskerr.Unavailable("model server", errors.New("connection refused"))

	rec := postJSON(t, env.mux, "/api/v1/risk/assess", dto.AssessRequest{
		EntityID:   "tx-1",
		EntityType: "transaction",
		Parameters: map[string]any{"amount": 10},
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The body carries the error kind but never the wrapped driver detail.
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DependencyUnavailable", resp.Error)
	assert.Equal(t, "assessment failed", resp.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestBatchEndpoint(t *testing.T) {
	env := newTestEnv(t)

	items := []dto.AssessRequest{
		{EntityID: "tx-1", EntityType: "transaction", Parameters: map[string]any{"amount": 10}},
		{EntityType: "transaction", Parameters: map[string]any{"amount": 20}},
		{EntityID: "tx-3", EntityType: "transaction", Parameters: map[string]any{"amount": 30}},
	}
	rec := postJSON(t, env.mux, "/api/v1/risk/batch", items)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Processed)
	require.Len(t, resp.Results, 3)

	assert.True(t, resp.Results[0].Succeeded())
	assert.Equal(t, "tx-1", resp.Results[0].EntityID)
	assert.False(t, resp.Results[1].Succeeded())
	assert.Equal(t, "ValidationError", resp.Results[1].Error.Kind)
	assert.True(t, resp.Results[2].Succeeded())
}

func TestBatchEndpoint_BodyMustBeArray(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.mux, "/api/v1/risk/batch", map[string]any{
		"items": []dto.AssessRequest{{EntityID: "tx-1", EntityType: "transaction", Parameters: map[string]any{"amount": 10}}},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ValidationError", resp.Error)
}

func TestBatchEndpoint_EmptyArray(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.mux, "/api/v1/risk/batch", []dto.AssessRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Processed)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Seed the audit trail through the assess endpoint.
	rec := postJSON(t, env.mux, "/api/v1/risk/assess", dto.AssessRequest{
		EntityID:   "tx-77",
		EntityType: "transaction",
		Parameters: map[string]any{"amount": 42},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Recording is detached from the request path; wait for it to land.
	require.Eventually(t, func() bool {
		scores, err := env.audit.ListByEntity(context.Background(), "tx-77", 0)
		return err == nil && len(scores) == 1
	}, time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/assessments/tx-77", nil)
	getRec := httptest.NewRecorder()
	env.mux.ServeHTTP(getRec, req)

	require.Equal(t, http.StatusOK, getRec.Code)

	var resp struct {
		EntityID    string               `json:"entity_id"`
		Assessments []dto.AssessResponse `json:"assessments"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &resp))
	assert.Equal(t, "tx-77", resp.EntityID)
	require.Len(t, resp.Assessments, 1)
	assert.Equal(t, "MEDIUM", resp.Assessments[0].RiskLevel)
}

func TestHistoryEndpoint_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.audit.err = errors.New("connection reset")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/assessments/tx-1", nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "risk-scoring-service", resp.Service)
}

func TestReadyEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	env.mclient.pingErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "unavailable", resp.Checks["model"])
	assert.Equal(t, "ok", resp.Checks["history"])
}
