package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// AssessRequest is the wire shape of an assessment request. Parameters stay
// untyped at the wire; ToModel validates them into the closed variant set.
type AssessRequest struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Parameters map[string]any `json:"parameters"`
	Context    map[string]any `json:"context,omitempty"`
}

// AssessResponse is the wire shape of a completed assessment.
type AssessResponse struct {
	EntityID     string    `json:"entity_id"`
	RiskLevel    string    `json:"risk_level"`
	Score        float64   `json:"score"`
	Factors      []string  `json:"factors"`
	Timestamp    time.Time `json:"timestamp"`
	ModelVersion string    `json:"model_version"`
}

// BatchResponse is the wire shape of a batch result.
type BatchResponse struct {
	Processed int                  `json:"processed"`
	Results   []model.BatchOutcome `json:"results"`
}

// FromRiskScore maps the decision artifact to its wire shape.
func FromRiskScore(s model.RiskScore) AssessResponse {
	return AssessResponse{
		EntityID:     s.EntityID,
		RiskLevel:    s.RiskLevel,
		Score:        s.Score,
		Factors:      s.Factors,
		Timestamp:    s.Timestamp,
		ModelVersion: s.ModelVersion,
	}
}

// ToModel validates the wire request and resolves the typed parameter
// variant for its entity type. Unrecognized entity types fall back to the
// generic variant rather than silently accepting arbitrary shape.
func (r AssessRequest) ToModel() (model.AssessmentRequest, error) {
	if r.EntityID == "" {
		return model.AssessmentRequest{}, riskerr.Validationf("entity_id is required")
	}
	if r.EntityType == "" {
		return model.AssessmentRequest{}, riskerr.Validationf("entity_type is required")
	}

	params, err := parseParameters(r.EntityType, r.Parameters)
	if err != nil {
		return model.AssessmentRequest{}, err
	}

	return model.AssessmentRequest{
		EntityID:   r.EntityID,
		EntityType: r.EntityType,
		Parameters: params,
		Context:    stringify(r.Context),
	}, nil
}

func parseParameters(entityType string, raw map[string]any) (model.Parameters, error) {
	switch entityType {
	case "transaction":
		amount, err := requiredAmount(entityType, raw)
		if err != nil {
			return nil, err
		}
		return model.TransactionParameters{
			Amount:             amount,
			Currency:           optionalString(raw, "currency"),
			TransactionType:    optionalString(raw, "transaction_type"),
			SourceCountry:      optionalString(raw, "source_country"),
			DestinationCountry: optionalString(raw, "destination_country"),
		}, nil

	case "account":
		amount, err := requiredAmount(entityType, raw)
		if err != nil {
			return nil, err
		}
		age := 0
		if v, ok := numeric(raw["account_age_days"]); ok {
			age = int(v)
		}
		return model.AccountParameters{
			Amount:         amount,
			AccountAgeDays: age,
			Country:        optionalString(raw, "country"),
		}, nil

	default:
		generic := model.GenericParameters{
			EntityType: entityType,
			Values:     make(map[string]string),
			Numeric:    make(map[string]float64),
		}
		for k, v := range raw {
			if f, ok := numeric(v); ok {
				generic.Numeric[k] = f
				continue
			}
			generic.Values[k] = fmt.Sprint(v)
		}
		return generic, nil
	}
}

func requiredAmount(entityType string, raw map[string]any) (decimal.Decimal, error) {
	v, ok := raw["amount"]
	if !ok {
		return decimal.Decimal{}, riskerr.Validationf("entity_type %q requires parameter %q", entityType, "amount")
	}
	switch a := v.(type) {
	case float64:
		return decimal.NewFromFloat(a), nil
	case string:
		d, err := decimal.NewFromString(a)
		if err != nil {
			return decimal.Decimal{}, riskerr.Validationf("parameter %q is not a number: %v", "amount", a)
		}
		return d, nil
	default:
		return decimal.Decimal{}, riskerr.Validationf("parameter %q is not a number", "amount")
	}
}

func numeric(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func optionalString(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func stringify(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
