// Package scoring holds the pure trust score component formulas, the badge
// rules and the drug batch risk model. Nothing here performs I/O.
package scoring

import "math"

// Component keys, in breakdown order
const (
	ComponentReview     = "review"
	ComponentCompliance = "compliance"
	ComponentQuality    = "quality"
	ComponentEfficiency = "efficiency"
	ComponentTimeliness = "timeliness"
)

// Components lists the component keys in breakdown order.
var Components = []string{
	ComponentReview,
	ComponentCompliance,
	ComponentQuality,
	ComponentEfficiency,
	ComponentTimeliness,
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundClamp clamps v to [0, max] and rounds half away from zero.
func roundClamp(v float64, max int) int {
	return int(math.Round(clamp(v, 0, float64(max))))
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// percent returns part/total as a percentage, 0 when total is 0.
func percent(part, total int) float64 {
	return ratio(part, total) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
