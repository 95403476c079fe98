package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/riskerr"
)

// QdrantIndex implements port.VectorIndex against the Qdrant HTTP API.
type QdrantIndex struct {
	baseURL    string
	collection string
	client     *http.Client
}

// NewQdrantIndex creates a client for the given Qdrant instance and collection.
func NewQdrantIndex(baseURL, collection string) *QdrantIndex {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &QdrantIndex{
		baseURL:    baseURL,
		collection: collection,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type qdrantSearchRequest struct {
	Vector      []float32    `json:"vector"`
	Limit       int          `json:"limit"`
	WithPayload bool         `json:"with_payload"`
	Filter      qdrantFilter `json:"filter"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantMatch struct {
	Value string `json:"value"`
}

// Point IDs may be integers or UUID strings depending on how the collection
// was loaded, so the ID field stays untyped until rendering.
type qdrantSearchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search queries the collection for the topK nearest risk patterns of the
// entity type. Qdrant returns cosine similarity; it is converted to a
// distance (0 = identical) so matches come back nearest first.
func (q *QdrantIndex) Search(ctx context.Context, embedding []float32, entityType string, topK int) ([]model.SimilarityMatch, error) {
	reqBody := qdrantSearchRequest{
		Vector:      embedding,
		Limit:       topK,
		WithPayload: true,
		Filter: qdrantFilter{
			Must: []qdrantCondition{{Key: "entity_type", Match: qdrantMatch{Value: entityType}}},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", q.baseURL, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, riskerr.Unavailable("vector index", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, riskerr.Unavailable("vector index", fmt.Errorf("status %d", resp.StatusCode))
	}

	var result qdrantSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, riskerr.Unavailable("vector index", err)
	}

	matches := make([]model.SimilarityMatch, 0, len(result.Result))
	for _, hit := range result.Result {
		label, _ := hit.Payload["label"].(string)
		matches = append(matches, model.SimilarityMatch{
			PatternID: renderPointID(hit.ID),
			Distance:  similarityToDistance(hit.Score),
			Label:     label,
		})
	}
	return matches, nil
}

// Ping checks that the collection is reachable.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", q.baseURL, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return riskerr.Unavailable("vector index", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return riskerr.Unavailable("vector index", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func renderPointID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}

// similarityToDistance maps a cosine similarity in [-1,1] to a non-negative
// distance where 0 means identical.
func similarityToDistance(similarity float64) float64 {
	d := 1 - similarity
	if d < 0 {
		return 0
	}
	return d
}
