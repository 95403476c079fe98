package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auditorsec/risk-scoring-service/internal/application/dto"
	"github.com/auditorsec/risk-scoring-service/internal/application/usecase"
	"github.com/auditorsec/risk-scoring-service/internal/domain/port"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// AssessmentHandler wires the risk-assessment use cases to HTTP.
type AssessmentHandler struct {
	assess *usecase.AssessEntity
	batch  *usecase.BatchAssess
	audit  port.AssessmentStore
	logger *slog.Logger
}

func NewAssessmentHandler(assess *usecase.AssessEntity, batch *usecase.BatchAssess, audit port.AssessmentStore, logger *slog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assess: assess,
		batch:  batch,
		audit:  audit,
		logger: logger,
	}
}

// RegisterRoutes registers the assessment endpoints on the provided ServeMux.
func (h *AssessmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/risk/assess", h.Assess)
	mux.HandleFunc("POST /api/v1/risk/batch", h.Batch)
	mux.HandleFunc("GET /api/v1/risk/assessments/{entity_id}", h.History)
}

// Assess handles a single assessment request.
func (h *AssessmentHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req dto.AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "request body is not valid JSON")
		return
	}

	score, err := h.assess.Execute(r.Context(), req)
	if err != nil {
		h.writeAssessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromRiskScore(score))
}

// Batch handles an ordered array of independent assessment requests.
func (h *AssessmentHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var items []dto.AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "request body is not a valid JSON array")
		return
	}

	outcomes := h.batch.Execute(r.Context(), items)
	writeJSON(w, http.StatusOK, dto.BatchResponse{
		Processed: len(outcomes),
		Results:   outcomes,
	})
}

// History returns recent assessments for an entity, newest first.
func (h *AssessmentHandler) History(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")
	if entityID == "" {
		writeError(w, http.StatusUnprocessableEntity, "ValidationError", "entity_id is required")
		return
	}

	scores, err := h.audit.ListByEntity(r.Context(), entityID, 0)
	if err != nil {
		h.logger.Error("list assessments failed",
			slog.String("entity_id", entityID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, riskerr.Kind(err), "could not load assessments")
		return
	}

	responses := make([]dto.AssessResponse, 0, len(scores))
	for _, s := range scores {
		responses = append(responses, dto.FromRiskScore(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id":   entityID,
		"assessments": responses,
	})
}

// writeAssessError maps an assessment failure to the wire. Validation errors
// carry their message; everything else is a 500 with a generic body so no
// wrapped driver detail leaks to callers.
func (h *AssessmentHandler) writeAssessError(w http.ResponseWriter, err error) {
	kind := riskerr.Kind(err)
	if errors.Is(err, riskerr.ErrValidation) {
		writeError(w, http.StatusUnprocessableEntity, kind, err.Error())
		return
	}

	h.logger.Error("assessment failed",
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, kind, "assessment failed")
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}
