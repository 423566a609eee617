package dto

import "github.com/noah-isme/studyplan-api/internal/models"

// StudyPlanRequest is the body of both plan creation and course replacement.
type StudyPlanRequest struct {
	StudyPlanType string   `json:"studyPlanType" validate:"required,oneof=full-time part-time"`
	MinCfu        *int     `json:"minCfu" validate:"required"`
	MaxCfu        *int     `json:"maxCfu" validate:"required"`
	ActualCfu     *int     `json:"actualCfu" validate:"required"`
	Courses       []string `json:"courses" validate:"required,min=1,unique,dive,len=7"`
}

// PreviewRequest asks for the selectable state of every catalog course given a draft set.
type PreviewRequest struct {
	StudyPlanType string   `json:"studyPlanType" validate:"required,oneof=full-time part-time"`
	Courses       []string `json:"courses" validate:"omitempty,unique,dive,len=7"`
}

// CourseState tells the client whether a catalog course can be added or removed.
type CourseState struct {
	CourseID      string `json:"courseId"`
	Selected      bool   `json:"selected"`
	AddBlocked    bool   `json:"addBlocked"`
	AddReason     string `json:"addReason,omitempty"`
	AddDetail     string `json:"addDetail,omitempty"`
	RemoveBlocked bool   `json:"removeBlocked"`
	RemoveDetail  string `json:"removeDetail,omitempty"`
}

// PreviewResponse carries the draft totals and per-course states.
type PreviewResponse struct {
	StudyPlanType models.PlanType `json:"studyPlanType"`
	MinCfu        int             `json:"minCfu"`
	MaxCfu        int             `json:"maxCfu"`
	ActualCfu     int             `json:"actualCfu"`
	Savable       bool            `json:"savable"`
	Problem       string          `json:"problem,omitempty"`
	Courses       []CourseState   `json:"courses"`
}
