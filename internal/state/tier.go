package state

import "fmt"

// Tier classifies a gas reading against the configured bounds.
type Tier string

const (
	TierVerySafe Tier = "very_safe"
	TierSafe     Tier = "safe"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Thresholds holds the reading tier bounds. Safe < Alert < Critical is
// enforced by config validation.
type Thresholds struct {
	Safe     float64 // below this: very_safe
	Alert    float64 // below this: safe; at or above: alert active
	Critical float64 // at or above this: critical
}

// Classify returns the tier for a reading.
func (t Thresholds) Classify(v float64) Tier {
	switch {
	case v < t.Safe:
		return TierVerySafe
	case v < t.Alert:
		return TierSafe
	case v < t.Critical:
		return TierWarning
	default:
		return TierCritical
	}
}

// IsSafe reports whether a reading is below the alert threshold.
func (t Thresholds) IsSafe(v float64) bool {
	return v < t.Alert
}

// Describe returns the human-readable status message for a reading, matching
// the tiers returned by Classify. The same wording is served to the reading
// query endpoint and, through the live-reading tool, spoken by the agent.
func (t Thresholds) Describe(v float64) string {
	switch t.Classify(v) {
	case TierVerySafe:
		return fmt.Sprintf("Gas level is %g, which is very safe (normal range).", v)
	case TierSafe:
		return fmt.Sprintf("Gas level is %g, which is safe but slightly elevated.", v)
	case TierWarning:
		return fmt.Sprintf("Gas level is %g, which is in the warning zone. Please check immediately.", v)
	default:
		return fmt.Sprintf("Gas level is %g, which is CRITICAL! Immediate action required!", v)
	}
}
