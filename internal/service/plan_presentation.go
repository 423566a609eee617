package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// BlockReason explains why a course cannot be added to or removed from a draft.
type BlockReason string

const (
	BlockAlreadyAdded BlockReason = "ALREADY_ADDED"
	BlockCfuExceeded  BlockReason = "CFU_EXCEEDED"
	BlockIncompatible BlockReason = "INCOMPATIBLE"
	BlockRequires     BlockReason = "REQUIRES"
	BlockFull         BlockReason = "FULL"
	BlockRequiredBy   BlockReason = "REQUIRED_BY"
)

// CourseAvailability is the add or remove state of one course in a draft.
type CourseAvailability struct {
	Blocked bool
	Reason  BlockReason
	Detail  string
}

// PlanDraft is a plan being assembled. Enrolled is the membership already
// saved for the student, whose seats are held and never count as full.
type PlanDraft struct {
	Selected []string
	Bounds   models.CfuBounds
	Enrolled []string
}

func (d PlanDraft) cfu(snap CatalogSnapshot) int {
	total := 0
	for _, id := range d.Selected {
		total += snap.Courses[id].Cfu
	}
	return total
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// PresentationState reports whether course can be added to the draft. Checks
// run in a fixed priority and the first match wins.
func PresentationState(course models.Course, draft PlanDraft, snap CatalogSnapshot) CourseAvailability {
	if contains(draft.Selected, course.ID) {
		return CourseAvailability{Blocked: true, Reason: BlockAlreadyAdded, Detail: "Course already added"}
	}
	if draft.cfu(snap)+course.Cfu > draft.Bounds.Max {
		return CourseAvailability{Blocked: true, Reason: BlockCfuExceeded, Detail: "With this course you will exceed the max cfu available"}
	}
	if hits := snap.IncompatibleWith(course.ID, draft.Selected); len(hits) > 0 {
		return CourseAvailability{Blocked: true, Reason: BlockIncompatible, Detail: "This course is incompatible with: " + strings.Join(hits, ", ")}
	}
	if req := course.RequiredID(); req != "" && !contains(draft.Selected, req) {
		return CourseAvailability{Blocked: true, Reason: BlockRequires, Detail: "This course requires: " + req}
	}
	if course.IsFull() && !contains(draft.Enrolled, course.ID) {
		return CourseAvailability{Blocked: true, Reason: BlockFull, Detail: "This course is full"}
	}
	return CourseAvailability{}
}

// RemoveState reports whether course can be dropped from the draft without
// leaving a selected course without its prerequisite.
func RemoveState(course models.Course, draft PlanDraft, snap CatalogSnapshot) CourseAvailability {
	var dependents []string
	for _, id := range draft.Selected {
		if id == course.ID {
			continue
		}
		if snap.Courses[id].RequiredID() == course.ID {
			dependents = append(dependents, id)
		}
	}
	if len(dependents) == 0 {
		return CourseAvailability{}
	}
	return CourseAvailability{
		Blocked: true,
		Reason:  BlockRequiredBy,
		Detail:  fmt.Sprintf("This course is required by: %s", strings.Join(dependents, ", ")),
	}
}
