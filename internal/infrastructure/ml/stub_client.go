package ml

import (
	"context"
	"math"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// StubModelClient scores without a model server. It returns a neutral 0.5
// probability, nudged by the features it recognizes, so local environments
// produce varied but stable results before a trained model is deployed.
type StubModelClient struct {
	version string
}

func NewStubModelClient(version string) *StubModelClient {
	return &StubModelClient{version: version}
}

func (s *StubModelClient) Score(ctx context.Context, features map[string]float64) (model.ModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return model.ModelOutput{}, err
	}
	for name, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.ModelOutput{}, riskerr.Scoringf("feature %s is not finite", name)
		}
	}

	p := 0.5
	contributions := map[string]float64{}

	if amount, ok := features["amount"]; ok && amount >= 10000 {
		p += 0.2
		contributions["amount"] = 0.2
	}
	if features["cross_border"] == 1 {
		p += 0.1
		contributions["cross_border"] = 0.1
	}
	if features["history_anomaly"] == 1 {
		p += 0.1
		contributions["history_anomaly"] = 0.1
	}
	if p > 1 {
		p = 1
	}

	return model.ModelOutput{
		RawProbability:       p,
		FeatureContributions: contributions,
		ModelVersion:         s.version,
	}, nil
}

func (s *StubModelClient) Ping(ctx context.Context) error {
	return ctx.Err()
}
