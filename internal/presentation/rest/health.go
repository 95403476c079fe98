package rest

import (
	"net/http"
	"time"

	"github.com/auditorsec/risk-scoring-service/internal/application/usecase"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	probe     *usecase.ProbeDependencies
	startTime time.Time
}

func NewHealthHandler(probe *usecase.ProbeDependencies) *HealthHandler {
	return &HealthHandler{
		probe:     probe,
		startTime: time.Now(),
	}
}

// HealthResponse is the JSON response for liveness checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// RegisterRoutes registers health endpoints on the provided ServeMux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
}

// Health handles liveness probe requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "risk-scoring-service",
		Uptime:  time.Since(h.startTime).String(),
	})
}

// Ready handles readiness probe requests. The service reports ready only
// once all three scoring dependencies answer a connectivity probe; a
// degraded-but-serving instance still answers /health.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.probe.Execute(r.Context())

	checks := map[string]string{
		"history":    checkWord(status.History),
		"similarity": checkWord(status.Similarity),
		"model":      checkWord(status.Model),
	}

	if !status.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not ready", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Checks: checks})
}

func checkWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
