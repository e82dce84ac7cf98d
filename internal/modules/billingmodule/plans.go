package billingmodule

import (
	"github.com/clipforge/clipforge/internal/database"
)

// Plan names the built-in subscription tiers.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// PlanLimits describes the ceilings a plan imposes. Zero means unlimited.
type PlanLimits struct {
	MaxVideoDuration int     // seconds
	MaxClipsPerVideo int
	InitialCredits   float64 // granted when the subscription is created
}

var planCatalog = map[string]PlanLimits{
	PlanFree:    {MaxVideoDuration: 600, MaxClipsPerVideo: 5, InitialCredits: 10},
	PlanStarter: {MaxVideoDuration: 1800, MaxClipsPerVideo: 10, InitialCredits: 100},
	PlanPro:     {MaxVideoDuration: 0, MaxClipsPerVideo: 0, InitialCredits: 500},
}

// LimitsFor returns the limits for a plan, defaulting unknown plans to free.
func LimitsFor(plan string) PlanLimits {
	if limits, ok := planCatalog[plan]; ok {
		return limits
	}
	return planCatalog[PlanFree]
}

// NewSubscription builds a subscription record for a user on the given plan.
func NewSubscription(userID, plan string) *database.UserSubscription {
	limits := LimitsFor(plan)
	if _, ok := planCatalog[plan]; !ok {
		plan = PlanFree
	}
	return &database.UserSubscription{
		UserID:           userID,
		Plan:             plan,
		MaxVideoDuration: limits.MaxVideoDuration,
		MaxClipsPerVideo: limits.MaxClipsPerVideo,
		Active:           true,
	}
}
