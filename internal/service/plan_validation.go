package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

// RejectionReason tags why a proposed plan was refused.
type RejectionReason string

const (
	ReasonBoundsMismatch      RejectionReason = "BOUNDS_MISMATCH"
	ReasonCfuSumMismatch      RejectionReason = "CFU_SUM_MISMATCH"
	ReasonCourseNotFound      RejectionReason = "COURSE_NOT_FOUND"
	ReasonIncompatible        RejectionReason = "INCOMPATIBLE_COURSES"
	ReasonMissingPrerequisite RejectionReason = "MISSING_PREREQUISITE"
	ReasonCourseFull          RejectionReason = "COURSE_FULL"
)

// Rejection is a validation failure carrying the offending course ids.
type Rejection struct {
	Reason    RejectionReason
	Message   string
	CourseIDs []string
}

func (r *Rejection) Error() string {
	return r.Message
}

var rejectionTemplates = map[RejectionReason]*appErrors.Error{
	ReasonBoundsMismatch:      appErrors.ErrBoundsMismatch,
	ReasonCfuSumMismatch:      appErrors.ErrCfuSumMismatch,
	ReasonCourseNotFound:      appErrors.ErrCourseNotFound,
	ReasonIncompatible:        appErrors.ErrIncompatibleCourses,
	ReasonMissingPrerequisite: appErrors.ErrMissingPrerequisite,
	ReasonCourseFull:          appErrors.ErrCourseFull,
}

// AsError converts the rejection into the HTTP-aware error returned to callers.
func (r *Rejection) AsError() *appErrors.Error {
	if r == nil {
		return nil
	}
	tmpl, ok := rejectionTemplates[r.Reason]
	if !ok {
		tmpl = appErrors.ErrValidation
	}
	var details map[string]interface{}
	if len(r.CourseIDs) > 0 {
		details = map[string]interface{}{"courseIds": r.CourseIDs}
	}
	return appErrors.WithDetails(tmpl, r.Message, details)
}

func reject(reason RejectionReason, ids []string, format string, args ...interface{}) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...), CourseIDs: ids}
}

// PlanProposal is the state a caller asks a plan to move to.
type PlanProposal struct {
	Type      models.PlanType
	MinCfu    int
	MaxCfu    int
	ActualCfu int
	CourseIDs []string
}

// CatalogSnapshot is the set of course rows and incompatibilities read for one validation.
type CatalogSnapshot struct {
	Courses      map[string]models.Course
	Incompatible map[string]map[string]struct{}
}

// NewCatalogSnapshot indexes courses by id and stores every pair in both directions.
func NewCatalogSnapshot(courses []models.Course, pairs []models.Incompatibility) CatalogSnapshot {
	snap := CatalogSnapshot{
		Courses:      make(map[string]models.Course, len(courses)),
		Incompatible: make(map[string]map[string]struct{}),
	}
	for _, c := range courses {
		snap.Courses[c.ID] = c
	}
	for _, p := range pairs {
		snap.link(p.Course1, p.Course2)
		snap.link(p.Course2, p.Course1)
	}
	return snap
}

func (s CatalogSnapshot) link(a, b string) {
	set, ok := s.Incompatible[a]
	if !ok {
		set = make(map[string]struct{})
		s.Incompatible[a] = set
	}
	set[b] = struct{}{}
}

// IncompatibleWith returns the members of ids that cannot coexist with course.
func (s CatalogSnapshot) IncompatibleWith(course string, ids []string) []string {
	set := s.Incompatible[course]
	if len(set) == 0 {
		return nil
	}
	var hits []string
	for _, id := range ids {
		if _, ok := set[id]; ok {
			hits = append(hits, id)
		}
	}
	return hits
}

// CheckCfuInBounds verifies caller-supplied bounds against the canonical ones
// for the plan type and that actual lies inside them.
func CheckCfuInBounds(planType models.PlanType, minCfu, maxCfu, actualCfu int) *Rejection {
	canonical := planType.Bounds()
	if minCfu != canonical.Min {
		return reject(ReasonBoundsMismatch, nil, "min cfu is not correct for type %s", planType)
	}
	if maxCfu != canonical.Max {
		return reject(ReasonBoundsMismatch, nil, "max cfu is not correct for type %s", planType)
	}
	if !canonical.Contains(actualCfu) {
		return reject(ReasonBoundsMismatch, nil, "actual cfu is not between min and max cfu")
	}
	return nil
}

// ValidatePlan runs every admissibility check in order and returns the first
// failure. current is the membership already held by the plan; capacity is
// only checked for courses outside it.
func ValidatePlan(p PlanProposal, snap CatalogSnapshot, current []string) *Rejection {
	if rej := CheckCfuInBounds(p.Type, p.MinCfu, p.MaxCfu, p.ActualCfu); rej != nil {
		return rej
	}

	courses := make([]models.Course, 0, len(p.CourseIDs))
	for _, id := range p.CourseIDs {
		course, ok := snap.Courses[id]
		if !ok {
			return reject(ReasonCourseNotFound, []string{id}, "Course %s not found", id)
		}
		courses = append(courses, course)
	}

	sum := 0
	for _, c := range courses {
		sum += c.Cfu
	}
	if sum != p.ActualCfu {
		return reject(ReasonCfuSumMismatch, nil, "sum of cfu is not correct")
	}

	for _, id := range p.CourseIDs {
		if hits := snap.IncompatibleWith(id, p.CourseIDs); len(hits) > 0 {
			return reject(ReasonIncompatible, append([]string{id}, hits...),
				"course %s is incompatible with %s", id, strings.Join(hits, ", "))
		}
	}

	selected := toSet(p.CourseIDs)
	for _, c := range courses {
		req := c.RequiredID()
		if req == "" {
			continue
		}
		if _, ok := selected[req]; !ok {
			return reject(ReasonMissingPrerequisite, []string{req, c.ID},
				"course %s is required by %s but not included in the studyplan", req, c.ID)
		}
	}

	_, toAdd := DiffMembership(current, p.CourseIDs)
	for _, id := range toAdd {
		if course := snap.Courses[id]; course.IsFull() {
			return reject(ReasonCourseFull, []string{id}, "The course %s is full", id)
		}
	}
	return nil
}

// DiffMembership returns the sorted ids to remove from and add to current to reach target.
func DiffMembership(current, target []string) (toRemove, toAdd []string) {
	currentSet := toSet(current)
	targetSet := toSet(target)
	for id := range currentSet {
		if _, ok := targetSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	for id := range targetSet {
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	sort.Strings(toRemove)
	sort.Strings(toAdd)
	return toRemove, toAdd
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
