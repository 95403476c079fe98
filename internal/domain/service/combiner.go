package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
	"github.com/auditorsec/risk-scoring-service/internal/domain/valueobject"
)

// Degraded-mode factor markers. They are always present in the factor list
// when the corresponding signal could not be fetched.
const (
	FactorHistoryUnavailable    = "history unavailable"
	FactorSimilarityUnavailable = "similarity unavailable"
)

// Signal categories, in tie-break priority order.
const (
	categoryModel = iota
	categoryHistory
	categorySimilarity
)

// Weights holds the combination weights of the three signals. The blend is a
// tunable policy, calibrated against labeled data, not a fixed law; only the
// sum-to-one constraint is structural.
type Weights struct {
	Model      float64
	History    float64
	Similarity float64
}

// DefaultWeights returns the current calibration.
func DefaultWeights() Weights {
	return Weights{Model: 0.7, History: 0.2, Similarity: 0.1}
}

// Validate checks that every weight is non-negative and the weights sum to 1.
func (w Weights) Validate() error {
	if w.Model < 0 || w.History < 0 || w.Similarity < 0 {
		return fmt.Errorf("weights must be non-negative: %+v", w)
	}
	if sum := w.Model + w.History + w.Similarity; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// CombinerInput carries the three signals of one assessment into the policy.
// An unavailable signal contributes zero and adds its degraded marker.
type CombinerInput struct {
	Model                 model.ModelOutput
	ModelUnavailable      bool
	History               model.HistorySignal
	HistoryUnavailable    bool
	Matches               []model.SimilarityMatch
	SimilarityUnavailable bool
}

// CombinerResult is the computed decision, minus timestamp and identity.
type CombinerResult struct {
	Score   float64
	Level   valueobject.RiskLevel
	Factors []string
}

// Combiner merges the model probability, the historical-anomaly signal and
// the similarity signal into one score with a ranked factor list. It is a
// pure function of its input: identical inputs yield identical results.
type Combiner struct {
	weights    Weights
	thresholds valueobject.Thresholds
	maxFactors int
}

// NewCombiner validates the policy configuration and returns a Combiner.
func NewCombiner(weights Weights, thresholds valueobject.Thresholds, maxFactors int) (*Combiner, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if maxFactors <= 0 {
		maxFactors = 5
	}
	return &Combiner{
		weights:    weights,
		thresholds: thresholds,
		maxFactors: maxFactors,
	}, nil
}

// factor is an internal ranking candidate.
type factor struct {
	label     string
	magnitude float64
	category  int
}

// Compute applies the weighted combination policy:
//
//	score = clamp01(w_model*p + w_history*anomaly + w_similarity*proximity)
//
// where anomaly is 1 when the history anomaly flag is set and proximity is
// 1/(1+d) of the nearest match. The risk level is derived from the score
// alone; no other path may set it.
func (c *Combiner) Compute(in CombinerInput) CombinerResult {
	historyContribution := 0.0
	if !in.HistoryUnavailable && in.History.AnomalyFlag {
		historyContribution = 1.0
	}

	similarityContribution := 0.0
	if !in.SimilarityUnavailable {
		similarityContribution = nearestProximity(in.Matches)
	}

	score := clamp01(c.weights.Model*in.Model.RawProbability +
		c.weights.History*historyContribution +
		c.weights.Similarity*similarityContribution)

	return CombinerResult{
		Score:   score,
		Level:   c.thresholds.Level(score),
		Factors: c.buildFactors(in, historyContribution, similarityContribution),
	}
}

// buildFactors ranks each signal's absolute weighted contribution descending
// and renders the top candidates. Ties break on the fixed category priority
// model > history > similarity, then on the label, keeping the output
// deterministic. Degraded markers are always appended.
func (c *Combiner) buildFactors(in CombinerInput, historyContribution, similarityContribution float64) []string {
	var candidates []factor

	// The baseline factor reports what the model actually returned; a run
	// where the model never produced output gets no model factors at all.
	if !in.ModelUnavailable {
		candidates = append(candidates, factor{
			label:     "model: baseline probability " + formatScore(in.Model.RawProbability),
			magnitude: math.Abs(c.weights.Model * in.Model.RawProbability),
			category:  categoryModel,
		})
	}

	for name, weight := range in.Model.FeatureContributions {
		if weight == 0 {
			continue
		}
		candidates = append(candidates, factor{
			label:     "model: " + name,
			magnitude: math.Abs(c.weights.Model * weight),
			category:  categoryModel,
		})
	}

	if historyContribution > 0 {
		candidates = append(candidates, factor{
			label:     "history: anomaly detected",
			magnitude: c.weights.History * historyContribution,
			category:  categoryHistory,
		})
	}

	if similarityContribution > 0 && len(in.Matches) > 0 {
		nearest := in.Matches[0]
		candidates = append(candidates, factor{
			label:     "similarity: resembles known pattern " + nearest.Label,
			magnitude: c.weights.Similarity * similarityContribution,
			category:  categorySimilarity,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].magnitude != candidates[j].magnitude {
			return candidates[i].magnitude > candidates[j].magnitude
		}
		if candidates[i].category != candidates[j].category {
			return candidates[i].category < candidates[j].category
		}
		return candidates[i].label < candidates[j].label
	})

	if len(candidates) > c.maxFactors {
		candidates = candidates[:c.maxFactors]
	}

	factors := make([]string, 0, len(candidates)+2)
	seen := make(map[string]struct{}, len(candidates)+2)
	appendUnique := func(label string) {
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		factors = append(factors, label)
	}

	for _, cand := range candidates {
		appendUnique(cand.label)
	}
	if in.HistoryUnavailable {
		appendUnique(FactorHistoryUnavailable)
	}
	if in.SimilarityUnavailable {
		appendUnique(FactorSimilarityUnavailable)
	}

	return factors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// formatScore renders a probability without trailing zeros ("0.5", not "0.50").
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
