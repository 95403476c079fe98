package valueobject

import "fmt"

// Thresholds holds the lower bounds of the MEDIUM, HIGH and CRITICAL bands.
// Scores below Medium are LOW. Each bound is closed: a score exactly on a
// boundary belongs to the higher band.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// DefaultThresholds returns the documented default band boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Medium:   ThresholdMedium,
		High:     ThresholdHigh,
		Critical: ThresholdCritical,
	}
}

// Validate checks that the bounds are strictly increasing within (0,1].
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.Medium >= t.High || t.High >= t.Critical || t.Critical > 1 {
		return fmt.Errorf("invalid thresholds: medium=%v high=%v critical=%v must satisfy 0 < medium < high < critical <= 1",
			t.Medium, t.High, t.Critical)
	}
	return nil
}

// Level maps a score in [0,1] to its risk band.
func (t Thresholds) Level(score float64) RiskLevel {
	switch {
	case score >= t.Critical:
		return RiskLevelCritical
	case score >= t.High:
		return RiskLevelHigh
	case score >= t.Medium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}
