package models

import "strings"

// PlanType enumerates the study plan categories.
type PlanType string

const (
	PlanTypeFullTime PlanType = "full-time"
	PlanTypePartTime PlanType = "part-time"
)

// CfuBounds are the inclusive credit limits of a plan.
type CfuBounds struct {
	Min int `json:"minCfu"`
	Max int `json:"maxCfu"`
}

// Contains reports whether cfu lies inside the bounds.
func (b CfuBounds) Contains(cfu int) bool {
	return cfu >= b.Min && cfu <= b.Max
}

// ParsePlanType normalises user input, returning false for unknown types.
func ParsePlanType(raw string) (PlanType, bool) {
	switch PlanType(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanTypeFullTime:
		return PlanTypeFullTime, true
	case PlanTypePartTime:
		return PlanTypePartTime, true
	}
	return "", false
}

// Valid reports whether t is one of the known plan types.
func (t PlanType) Valid() bool {
	return t == PlanTypeFullTime || t == PlanTypePartTime
}

// Bounds returns the canonical credit bounds for the plan type.
func (t PlanType) Bounds() CfuBounds {
	if t == PlanTypeFullTime {
		return CfuBounds{Min: 60, Max: 80}
	}
	return CfuBounds{Min: 20, Max: 40}
}

// BoundsFor is the lookup form of PlanType.Bounds.
func BoundsFor(t PlanType) CfuBounds {
	return t.Bounds()
}

// StudyPlan is the single plan owned by a student.
type StudyPlan struct {
	StudentID string   `json:"student"`
	Type      PlanType `json:"studyPlanType"`
	MinCfu    int      `json:"minCfu"`
	MaxCfu    int      `json:"maxCfu"`
	ActualCfu int      `json:"actualCfu"`
}

// Bounds returns the bounds recorded on the plan.
func (p StudyPlan) Bounds() CfuBounds {
	return CfuBounds{Min: p.MinCfu, Max: p.MaxCfu}
}
