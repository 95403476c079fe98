package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// HTTPModelClient scores feature vectors against a remote model server.
type HTTPModelClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPModelClient(baseURL string) *HTTPModelClient {
	return &HTTPModelClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type scoreRequest struct {
	Features map[string]float64 `json:"features"`
}

type scoreResponse struct {
	Probability   float64            `json:"probability"`
	Contributions map[string]float64 `json:"contributions"`
	ModelVersion  string             `json:"model_version"`
}

// Score sends the feature vector to the model server. A response outside
// [0,1] or with a NaN probability is a scoring error, not an availability
// problem.
func (c *HTTPModelClient) Score(ctx context.Context, features map[string]float64) (model.ModelOutput, error) {
	for name, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.ModelOutput{}, riskerr.Scoringf("feature %s is not finite", name)
		}
	}

	payload, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return model.ModelOutput{}, fmt.Errorf("marshal score request: %w", err)
	}

	url := c.baseURL + "/v1/score"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.ModelOutput{}, fmt.Errorf("create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.ModelOutput{}, riskerr.Unavailable("model server", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return model.ModelOutput{}, riskerr.Scoringf("model rejected feature vector")
	case resp.StatusCode != http.StatusOK:
		return model.ModelOutput{}, riskerr.Unavailable("model server", fmt.Errorf("status %d", resp.StatusCode))
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.ModelOutput{}, riskerr.Unavailable("model server", err)
	}
	if math.IsNaN(result.Probability) || result.Probability < 0 || result.Probability > 1 {
		return model.ModelOutput{}, riskerr.Scoringf("model returned probability %v outside [0,1]", result.Probability)
	}

	return model.ModelOutput{
		RawProbability:       result.Probability,
		FeatureContributions: result.Contributions,
		ModelVersion:         result.ModelVersion,
	}, nil
}

func (c *HTTPModelClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return riskerr.Unavailable("model server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return riskerr.Unavailable("model server", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
