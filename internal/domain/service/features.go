package service

import (
	"github.com/auditorsec/risk-scoring-service/internal/domain/model"
)

// AssembleFeatures builds the feature vector fed to the scoring model. The
// transform is fixed and deterministic: the same request, history and match
// sequence always produce the same vector.
//
// Features:
//   - every numeric feature of the typed parameters, under its own name
//   - history_event_count, history_anomaly (0 or 1)
//   - sim_match_count, sim_nearest_proximity (1/(1+d) of the nearest match,
//     0 when there are no matches)
//   - sim_label_<label>: count of matches carrying that risk label
//
// Absence of a signal is a zero-valued feature, never an error.
func AssembleFeatures(req model.AssessmentRequest, history model.HistorySignal, matches []model.SimilarityMatch) map[string]float64 {
	features := make(map[string]float64)

	if req.Parameters != nil {
		for name, value := range req.Parameters.Features() {
			features[name] = value
		}
	}

	features["history_event_count"] = float64(history.EventCount)
	if history.AnomalyFlag {
		features["history_anomaly"] = 1
	} else {
		features["history_anomaly"] = 0
	}

	features["sim_match_count"] = float64(len(matches))
	features["sim_nearest_proximity"] = nearestProximity(matches)
	for _, m := range matches {
		if m.Label != "" {
			features["sim_label_"+m.Label]++
		}
	}

	return features
}

// nearestProximity converts the nearest match's distance into a proximity in
// (0,1], monotonically decreasing in distance. No matches means 0.
func nearestProximity(matches []model.SimilarityMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	return 1 / (1 + matches[0].Distance)
}
