package valueobject

import "fmt"

// RiskLevel is an immutable value object representing the quantized risk band.
type RiskLevel struct {
	value string
	rank  int
}

var (
	RiskLevelLow      = RiskLevel{value: "LOW", rank: 0}
	RiskLevelMedium   = RiskLevel{value: "MEDIUM", rank: 1}
	RiskLevelHigh     = RiskLevel{value: "HIGH", rank: 2}
	RiskLevelCritical = RiskLevel{value: "CRITICAL", rank: 3}
)

// Band thresholds. A score exactly on a boundary belongs to the higher band.
// These are the calibrated defaults; Thresholds in config may override them.
const (
	ThresholdMedium   = 0.25
	ThresholdHigh     = 0.60
	ThresholdCritical = 0.85
)

// RiskLevelFromString reconstructs a RiskLevel from its string representation.
func RiskLevelFromString(s string) (RiskLevel, error) {
	switch s {
	case "LOW":
		return RiskLevelLow, nil
	case "MEDIUM":
		return RiskLevelMedium, nil
	case "HIGH":
		return RiskLevelHigh, nil
	case "CRITICAL":
		return RiskLevelCritical, nil
	default:
		return RiskLevel{}, fmt.Errorf("invalid risk level: %s", s)
	}
}

// String returns the string representation.
func (r RiskLevel) String() string {
	return r.value
}

// IsZero returns true if the RiskLevel has not been set.
func (r RiskLevel) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RiskLevel.
func (r RiskLevel) Equal(other RiskLevel) bool {
	return r.value == other.value
}

// AtLeast reports whether this level is at or above the other level.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.rank >= other.rank
}
