package billingmodule

import (
	"fmt"

	"github.com/clipforge/clipforge/internal/database"
)

// Videos longer than this pay a per-clip complexity surcharge.
const complexityThresholdSeconds = 600

// CostEstimate breaks a credit cost down into its components.
// Total is always the exact sum of the three parts.
type CostEstimate struct {
	Base            float64 `json:"base"`
	DurationBonus   float64 `json:"durationBonus"`
	ComplexityBonus float64 `json:"complexityBonus"`
	Total           float64 `json:"total"`
}

// EstimateCost computes the credit cost for generating clipCount clips from
// a source of durationSeconds. Pure: identical inputs yield identical
// results.
func EstimateCost(durationSeconds float64, clipCount int) CostEstimate {
	est := CostEstimate{
		Base:          float64(clipCount) * 1.0,
		DurationBonus: durationSeconds / 60.0 * 0.1,
	}
	if durationSeconds > complexityThresholdSeconds {
		est.ComplexityBonus = float64(clipCount) * 0.5
	}
	est.Total = est.Base + est.DurationBonus + est.ComplexityBonus
	return est
}

// Decision is the outcome of the pre-flight cost gate.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  string       `json:"reason,omitempty"`
	Cost    CostEstimate `json:"cost"`
}

// CanProcess checks plan ceilings and the remaining balance, returning the
// first failing constraint's reason. A zero ceiling means unlimited.
func CanProcess(sub *database.UserSubscription, credits *database.UserCredits, durationSeconds float64, clipCount int) Decision {
	cost := EstimateCost(durationSeconds, clipCount)

	if sub.MaxVideoDuration > 0 && durationSeconds > float64(sub.MaxVideoDuration) {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("video duration %.0fs exceeds the %s plan limit of %ds", durationSeconds, sub.Plan, sub.MaxVideoDuration),
			Cost:    cost,
		}
	}
	if sub.MaxClipsPerVideo > 0 && clipCount > sub.MaxClipsPerVideo {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("%d clips exceeds the %s plan limit of %d per video", clipCount, sub.Plan, sub.MaxClipsPerVideo),
			Cost:    cost,
		}
	}
	if credits.RemainingCredits < cost.Total {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("insufficient credits: need %.1f, have %.1f", cost.Total, credits.RemainingCredits),
			Cost:    cost,
		}
	}

	return Decision{Allowed: true, Cost: cost}
}
