package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

// memoryStore is an in-memory plan store. WithinTx holds the store lock for
// the whole transaction and restores the previous state when fn fails.
type memoryStore struct {
	mu         sync.Mutex
	courses    map[string]models.Course
	pairs      []models.Incompatibility
	plans      map[string]models.StudyPlan
	membership map[string]map[string]struct{}

	// mutations counts membership and enrollment writes.
	mutations int
	// txErr is returned by the next transaction instead of running it.
	txErr error
	// incrementErr fails IncrementEnrollment for the given course.
	incrementErr map[string]error
}

func newMemoryStore(courses []models.Course, pairs []models.Incompatibility) *memoryStore {
	s := &memoryStore{
		courses:      make(map[string]models.Course, len(courses)),
		pairs:        pairs,
		plans:        make(map[string]models.StudyPlan),
		membership:   make(map[string]map[string]struct{}),
		incrementErr: make(map[string]error),
	}
	for _, c := range courses {
		s.courses[c.ID] = c
	}
	return s
}

func (s *memoryStore) course(id string) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courses[id]
}

func (s *memoryStore) GetPlan(ctx context.Context, studentID string) (*models.StudyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &plan, nil
}

func (s *memoryStore) ListMembership(ctx context.Context, studentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{s: s}).ListMembership(ctx, studentID)
}

func (s *memoryStore) ListPlanCourses(ctx context.Context, studentID string) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var courses []models.Course
	for id := range s.membership[studentID] {
		courses = append(courses, s.courses[id])
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (s *memoryStore) WithinTx(ctx context.Context, fn func(store repository.PlanStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		err := s.txErr
		s.txErr = nil
		return err
	}

	courses := make(map[string]models.Course, len(s.courses))
	for id, c := range s.courses {
		courses[id] = c
	}
	plans := make(map[string]models.StudyPlan, len(s.plans))
	for id, p := range s.plans {
		plans[id] = p
	}
	membership := make(map[string]map[string]struct{}, len(s.membership))
	for id, set := range s.membership {
		membership[id] = copySet(set)
	}
	mutations := s.mutations

	if err := fn(&memoryTx{s: s}); err != nil {
		s.courses, s.plans, s.membership, s.mutations = courses, plans, membership, mutations
		return err
	}
	return nil
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

type memoryTx struct {
	s *memoryStore
}

func (t *memoryTx) LockPlan(ctx context.Context, studentID string) (*models.StudyPlan, error) {
	plan, ok := t.s.plans[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &plan, nil
}

func (t *memoryTx) ListMembership(ctx context.Context, studentID string) ([]string, error) {
	ids := make([]string, 0, len(t.s.membership[studentID]))
	for id := range t.s.membership[studentID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *memoryTx) LockCourses(ctx context.Context, ids []string) ([]models.Course, error) {
	var courses []models.Course
	for _, id := range ids {
		if c, ok := t.s.courses[id]; ok {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (t *memoryTx) ListIncompatibilities(ctx context.Context, ids []string) ([]models.Incompatibility, error) {
	set := toSet(ids)
	var out []models.Incompatibility
	for _, p := range t.s.pairs {
		_, a := set[p.Course1]
		_, b := set[p.Course2]
		if a || b {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memoryTx) CreatePlan(ctx context.Context, plan models.StudyPlan) error {
	if _, ok := t.s.plans[plan.StudentID]; ok {
		return appErrors.ErrPlanExists
	}
	t.s.plans[plan.StudentID] = plan
	return nil
}

func (t *memoryTx) UpdatePlanCfu(ctx context.Context, studentID string, actualCfu int) error {
	plan := t.s.plans[studentID]
	plan.ActualCfu = actualCfu
	t.s.plans[studentID] = plan
	return nil
}

func (t *memoryTx) DeletePlan(ctx context.Context, studentID string) error {
	delete(t.s.plans, studentID)
	delete(t.s.membership, studentID)
	return nil
}

func (t *memoryTx) AddMembership(ctx context.Context, studentID string, courseIDs []string) error {
	set, ok := t.s.membership[studentID]
	if !ok {
		set = make(map[string]struct{})
		t.s.membership[studentID] = set
	}
	for _, id := range courseIDs {
		if _, dup := set[id]; dup {
			return fmt.Errorf("duplicate membership %s/%s", studentID, id)
		}
		set[id] = struct{}{}
		t.s.mutations++
	}
	return nil
}

func (t *memoryTx) RemoveMembership(ctx context.Context, studentID string, courseIDs []string) error {
	for _, id := range courseIDs {
		delete(t.s.membership[studentID], id)
		t.s.mutations++
	}
	return nil
}

func (t *memoryTx) IncrementEnrollment(ctx context.Context, courseID string) error {
	if err := t.s.incrementErr[courseID]; err != nil {
		return err
	}
	c := t.s.courses[courseID]
	if c.MaxS != nil && c.ActualS >= *c.MaxS {
		return appErrors.ErrCapacityExceeded
	}
	c.ActualS++
	t.s.courses[courseID] = c
	t.s.mutations++
	return nil
}

func (t *memoryTx) DecrementEnrollment(ctx context.Context, courseID string) error {
	c := t.s.courses[courseID]
	if c.ActualS <= 0 {
		return appErrors.ErrBelowZero
	}
	c.ActualS--
	t.s.courses[courseID] = c
	t.s.mutations++
	return nil
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// testCatalog is a small catalog: A(6) B(8) incompatible C(10) D(12, requires A) E(6, cap 1) F(20) G(20).
func testCatalog() ([]models.Course, []models.Incompatibility) {
	courses := []models.Course{
		{ID: "01AAAAA", Name: "Analisi", Cfu: 6},
		{ID: "02BBBBB", Name: "Basi di dati", Cfu: 8},
		{ID: "03CCCCC", Name: "Calcolatori", Cfu: 10},
		{ID: "04DDDDD", Name: "Distribuiti", Cfu: 12, Required: strPtr("01AAAAA")},
		{ID: "05EEEEE", Name: "Elettronica", Cfu: 6, MaxS: intPtr(1)},
		{ID: "06FFFFF", Name: "Fisica", Cfu: 20},
		{ID: "07GGGGG", Name: "Geometria", Cfu: 20},
	}
	pairs := []models.Incompatibility{{Course1: "02BBBBB", Course2: "03CCCCC"}}
	return courses, pairs
}
