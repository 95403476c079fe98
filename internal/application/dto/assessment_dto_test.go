package dto_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditorsec/risk-scoring-service/internal/application/dto"
	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

func TestAssessRequest_ToModel_Transaction(t *testing.T) {
	req := dto.AssessRequest{
		EntityID:   "tx-1",
		EntityType: "transaction",
		Parameters: map[string]any{
			"amount":              12500.0,
			"currency":            "USD",
			"transaction_type":    "wire_transfer",
			"source_country":      "US",
			"destination_country": "GB",
		},
		Context: map[string]any{"channel": "mobile"},
	}

	m, err := req.ToModel()
	require.NoError(t, err)

	params, ok := m.Parameters.(model.TransactionParameters)
	require.True(t, ok)
	assert.Equal(t, "12500", params.Amount.String())
	assert.Equal(t, "USD", params.Currency)
	assert.Equal(t, "wire_transfer", params.TransactionType)
	assert.Equal(t, "mobile", m.Context["channel"])
}

func TestAssessRequest_ToModel_AmountAsString(t *testing.T) {
	req := dto.AssessRequest{
		EntityID:   "tx-2",
		EntityType: "transaction",
		Parameters: map[string]any{"amount": "99.95"},
	}

	m, err := req.ToModel()
	require.NoError(t, err)
	params := m.Parameters.(model.TransactionParameters)
	assert.Equal(t, "99.95", params.Amount.String())
}

func TestAssessRequest_ToModel_MissingEntityID(t *testing.T) {
	req := dto.AssessRequest{EntityType: "transaction"}
	_, err := req.ToModel()
	require.Error(t, err)
	assert.True(t, errors.Is(err, riskerr.ErrValidation))
}

func TestAssessRequest_ToModel_MissingEntityType(t *testing.T) {
	req := dto.AssessRequest{EntityID: "tx-1"}
	_, err := req.ToModel()
	require.Error(t, err)
	assert.True(t, errors.Is(err, riskerr.ErrValidation))
}

func TestAssessRequest_ToModel_MissingRequiredAmount(t *testing.T) {
	req := dto.AssessRequest{
		EntityID:   "tx-1",
		EntityType: "transaction",
		Parameters: map[string]any{"currency": "USD"},
	}
	_, err := req.ToModel()
	require.Error(t, err)
	assert.True(t, errors.Is(err, riskerr.ErrValidation))
	assert.Contains(t, err.Error(), "amount")
}

func TestAssessRequest_ToModel_UnknownTypeFallsBackToGeneric(t *testing.T) {
	req := dto.AssessRequest{
		EntityID:   "dev-1",
		EntityType: "device",
		Parameters: map[string]any{"os": "linux", "screen_width": 1920.0},
	}

	m, err := req.ToModel()
	require.NoError(t, err)

	params, ok := m.Parameters.(model.GenericParameters)
	require.True(t, ok)
	assert.Equal(t, "device", params.Kind())
	assert.Equal(t, "linux", params.Values["os"])
	assert.Equal(t, 1920.0, params.Numeric["screen_width"])
}

func TestAssessRequest_ToModel_ContextNeverRequired(t *testing.T) {
	req := dto.AssessRequest{
		EntityID:   "acct-1",
		EntityType: "account",
		Parameters: map[string]any{"amount": 9999.0},
	}

	m, err := req.ToModel()
	require.NoError(t, err)
	assert.Nil(t, m.Context)
}
