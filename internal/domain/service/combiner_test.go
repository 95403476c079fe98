package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/service"
	"github.com/auditorsec/risk-scoring-service/internal/domain/valueobject"
)

func newCombiner(t *testing.T) *service.Combiner {
	t.Helper()
	c, err := service.NewCombiner(service.DefaultWeights(), valueobject.DefaultThresholds(), 5)
	require.NoError(t, err)
	return c
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, service.DefaultWeights().Validate())
	assert.NoError(t, service.Weights{Model: 1, History: 0, Similarity: 0}.Validate())

	assert.Error(t, service.Weights{Model: 0.5, History: 0.5, Similarity: 0.5}.Validate())
	assert.Error(t, service.Weights{Model: 1.2, History: -0.1, Similarity: -0.1}.Validate())
	assert.Error(t, service.Weights{}.Validate())
}

func TestCombiner_WorkedExample(t *testing.T) {
	// weights {model:0.7, history:0.2, similarity:0.1}, raw probability 0.5,
	// no history, no matches -> 0.35 MEDIUM with a single baseline factor.
	c := newCombiner(t)

	result := c.Compute(service.CombinerInput{
		Model:   model.ModelOutput{RawProbability: 0.5, ModelVersion: "0.1.0"},
		History: model.HistorySignal{EntityID: "acct-1"},
	})

	assert.InDelta(t, 0.35, result.Score, 1e-12)
	assert.Equal(t, "MEDIUM", result.Level.String())
	assert.Equal(t, []string{"model: baseline probability 0.5"}, result.Factors)
}

func TestCombiner_Determinism(t *testing.T) {
	c := newCombiner(t)

	in := service.CombinerInput{
		Model: model.ModelOutput{
			RawProbability: 0.62,
			FeatureContributions: map[string]float64{
				"amount":       0.4,
				"cross_border": 0.2,
				"sim_label_ml": -0.1,
			},
		},
		History: model.HistorySignal{EntityID: "tx-9", EventCount: 12, AnomalyFlag: true},
		Matches: []model.SimilarityMatch{
			{PatternID: "p-1", Distance: 0.2, Label: "money_laundering"},
			{PatternID: "p-2", Distance: 0.8, Label: "fraud_ring"},
		},
	}

	first := c.Compute(in)
	for i := 0; i < 50; i++ {
		again := c.Compute(in)
		assert.Equal(t, first.Score, again.Score)
		assert.True(t, first.Level.Equal(again.Level))
		assert.Equal(t, first.Factors, again.Factors)
	}
}

func TestCombiner_Monotonicity(t *testing.T) {
	c := newCombiner(t)

	in := service.CombinerInput{
		History: model.HistorySignal{AnomalyFlag: true},
		Matches: []model.SimilarityMatch{{PatternID: "p", Distance: 0.5, Label: "fraud"}},
	}

	prev := -1.0
	for p := 0.0; p <= 1.0; p += 0.05 {
		in.Model = model.ModelOutput{RawProbability: p}
		score := c.Compute(in).Score
		assert.GreaterOrEqual(t, score, prev, "raising raw probability must never lower the score")
		prev = score
	}
}

func TestCombiner_ThresholdBoundaries(t *testing.T) {
	// A score exactly on a boundary belongs to the higher band.
	c, err := service.NewCombiner(
		service.Weights{Model: 1, History: 0, Similarity: 0},
		valueobject.DefaultThresholds(), 5,
	)
	require.NoError(t, err)

	tests := []struct {
		probability float64
		expected    valueobject.RiskLevel
	}{
		{0.0, valueobject.RiskLevelLow},
		{0.24, valueobject.RiskLevelLow},
		{0.25, valueobject.RiskLevelMedium},
		{0.59, valueobject.RiskLevelMedium},
		{0.60, valueobject.RiskLevelHigh},
		{0.84, valueobject.RiskLevelHigh},
		{0.85, valueobject.RiskLevelCritical},
		{1.0, valueobject.RiskLevelCritical},
	}

	for _, tt := range tests {
		result := c.Compute(service.CombinerInput{Model: model.ModelOutput{RawProbability: tt.probability}})
		assert.True(t, tt.expected.Equal(result.Level),
			"probability %v: expected %s, got %s", tt.probability, tt.expected, result.Level)
	}
}

func TestCombiner_DegradedHistoryEquivalence(t *testing.T) {
	c := newCombiner(t)

	in := service.CombinerInput{
		Model:   model.ModelOutput{RawProbability: 0.4},
		Matches: []model.SimilarityMatch{{PatternID: "p", Distance: 1.0, Label: "fraud"}},
	}

	// History unavailable must score identically to anomaly contribution 0.
	degraded := in
	degraded.History = model.HistorySignal{AnomalyFlag: true}
	degraded.HistoryUnavailable = true

	baseline := in
	baseline.History = model.HistorySignal{AnomalyFlag: false}

	degradedResult := c.Compute(degraded)
	baselineResult := c.Compute(baseline)

	assert.Equal(t, baselineResult.Score, degradedResult.Score)
	assert.Contains(t, degradedResult.Factors, service.FactorHistoryUnavailable)
	assert.NotContains(t, baselineResult.Factors, service.FactorHistoryUnavailable)
}

func TestCombiner_DegradedSimilarityMarker(t *testing.T) {
	c := newCombiner(t)

	result := c.Compute(service.CombinerInput{
		Model:                 model.ModelOutput{RawProbability: 0.3},
		SimilarityUnavailable: true,
		Matches:               []model.SimilarityMatch{{PatternID: "p", Distance: 0, Label: "fraud"}},
	})

	// Matches from an unavailable index contribute nothing.
	assert.InDelta(t, 0.7*0.3, result.Score, 1e-12)
	assert.Contains(t, result.Factors, service.FactorSimilarityUnavailable)
}

func TestCombiner_AnomalyAndSimilarityContributions(t *testing.T) {
	c := newCombiner(t)

	result := c.Compute(service.CombinerInput{
		Model:   model.ModelOutput{RawProbability: 0.5},
		History: model.HistorySignal{EventCount: 40, AnomalyFlag: true},
		Matches: []model.SimilarityMatch{{PatternID: "p-1", Distance: 0, Label: "account_takeover"}},
	})

	// 0.7*0.5 + 0.2*1 + 0.1*1 = 0.65 -> HIGH
	assert.InDelta(t, 0.65, result.Score, 1e-12)
	assert.Equal(t, "HIGH", result.Level.String())
	assert.Contains(t, result.Factors, "history: anomaly detected")
	assert.Contains(t, result.Factors, "similarity: resembles known pattern account_takeover")
}

func TestCombiner_FactorRankingAndCap(t *testing.T) {
	c, err := service.NewCombiner(service.DefaultWeights(), valueobject.DefaultThresholds(), 3)
	require.NoError(t, err)

	result := c.Compute(service.CombinerInput{
		Model: model.ModelOutput{
			RawProbability: 0.9,
			FeatureContributions: map[string]float64{
				"amount":   0.8,
				"velocity": 0.6,
				"novelty":  0.2,
				"channel":  0.1,
			},
		},
		History: model.HistorySignal{AnomalyFlag: true},
	})

	require.Len(t, result.Factors, 3)
	// Highest absolute weighted contribution first.
	assert.Equal(t, "model: baseline probability 0.9", result.Factors[0])
	assert.Equal(t, "model: amount", result.Factors[1])
	assert.Equal(t, "model: velocity", result.Factors[2])
}

func TestCombiner_ScoreClamped(t *testing.T) {
	c := newCombiner(t)

	result := c.Compute(service.CombinerInput{
		Model:   model.ModelOutput{RawProbability: 1.0},
		History: model.HistorySignal{AnomalyFlag: true},
		Matches: []model.SimilarityMatch{{PatternID: "p", Distance: 0, Label: "fraud"}},
	})

	assert.LessOrEqual(t, result.Score, 1.0)
	assert.Equal(t, "CRITICAL", result.Level.String())
}

func TestCombiner_ModelUnavailableSuppressesBaselineFactor(t *testing.T) {
	c := newCombiner(t)

	result := c.Compute(service.CombinerInput{
		ModelUnavailable:      true,
		HistoryUnavailable:    true,
		SimilarityUnavailable: true,
	})

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, "LOW", result.Level.String())
	// A run without model output reports only the degraded markers; no
	// phantom "baseline probability 0" factor.
	assert.Equal(t, []string{
		service.FactorHistoryUnavailable,
		service.FactorSimilarityUnavailable,
	}, result.Factors)
}
