package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

// Lifecycle operation names used for logs and metrics.
const (
	OperationCreate = "create"
	OperationEdit   = "edit"
	OperationDelete = "delete"
)

type studyPlanRepository interface {
	GetPlan(ctx context.Context, studentID string) (*models.StudyPlan, error)
	ListMembership(ctx context.Context, studentID string) ([]string, error)
	ListPlanCourses(ctx context.Context, studentID string) ([]models.Course, error)
	WithinTx(ctx context.Context, fn func(store repository.PlanStore) error) error
}

type catalogSource interface {
	Catalog(ctx context.Context) ([]models.CatalogCourse, error)
}

// StudyPlanConfig tunes the lifecycle controller.
type StudyPlanConfig struct {
	StoreTimeout time.Duration
}

// StudyPlanService creates, edits and deletes study plans. Each mutation runs
// in one transaction holding row locks on the plan and on every course it touches.
type StudyPlanService struct {
	repo      studyPlanRepository
	catalog   catalogSource
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudyPlanConfig
}

// NewStudyPlanService constructs a StudyPlanService.
func NewStudyPlanService(repo studyPlanRepository, catalog catalogSource, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg StudyPlanConfig) *StudyPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &StudyPlanService{
		repo:      repo,
		catalog:   catalog,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Get returns the student's plan.
func (s *StudyPlanService) Get(ctx context.Context, studentID string) (*models.StudyPlan, error) {
	plan, err := s.repo.GetPlan(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrPlanNotFound
		}
		return nil, s.storeError(err, "failed to load study plan")
	}
	return plan, nil
}

// Courses returns the courses of the student's plan ordered by name.
func (s *StudyPlanService) Courses(ctx context.Context, studentID string) ([]models.Course, error) {
	courses, err := s.repo.ListPlanCourses(ctx, studentID)
	if err != nil {
		return nil, s.storeError(err, "failed to load study plan courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Create stores a new plan for a student without one.
func (s *StudyPlanService) Create(ctx context.Context, studentID string, req dto.StudyPlanRequest) (*models.StudyPlan, error) {
	proposal, err := s.proposal(req)
	if err != nil {
		return nil, err
	}

	var created *models.StudyPlan
	err = s.run(ctx, OperationCreate, studentID, func(ctx context.Context, store repository.PlanStore) error {
		if _, err := store.LockPlan(ctx, studentID); err == nil {
			return appErrors.ErrPlanExists
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		snap, err := lockSnapshot(ctx, store, proposal.CourseIDs, proposal.CourseIDs)
		if err != nil {
			return err
		}
		if rej := ValidatePlan(proposal, snap, nil); rej != nil {
			return rej
		}

		plan := models.StudyPlan{
			StudentID: studentID,
			Type:      proposal.Type,
			MinCfu:    proposal.MinCfu,
			MaxCfu:    proposal.MaxCfu,
			ActualCfu: proposal.ActualCfu,
		}
		if err := store.CreatePlan(ctx, plan); err != nil {
			return err
		}
		if _, err := Reconcile(ctx, store, studentID, nil, proposal.CourseIDs); err != nil {
			return err
		}
		created = &plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Edit replaces the course set of an existing plan. The plan type and bounds
// recorded at creation cannot change.
func (s *StudyPlanService) Edit(ctx context.Context, studentID string, req dto.StudyPlanRequest) (*models.StudyPlan, error) {
	proposal, err := s.proposal(req)
	if err != nil {
		return nil, err
	}

	var updated *models.StudyPlan
	err = s.run(ctx, OperationEdit, studentID, func(ctx context.Context, store repository.PlanStore) error {
		plan, err := lockExistingPlan(ctx, store, studentID)
		if err != nil {
			return err
		}
		if plan.Type != proposal.Type {
			return reject(ReasonBoundsMismatch, nil, "study plan type cannot change from %s to %s", plan.Type, proposal.Type)
		}

		current, err := store.ListMembership(ctx, studentID)
		if err != nil {
			return err
		}
		snap, err := lockSnapshot(ctx, store, union(current, proposal.CourseIDs), proposal.CourseIDs)
		if err != nil {
			return err
		}
		if rej := ValidatePlan(proposal, snap, current); rej != nil {
			return rej
		}

		result, err := Reconcile(ctx, store, studentID, current, proposal.CourseIDs)
		if err != nil {
			return err
		}
		if result.Changed() || plan.ActualCfu != proposal.ActualCfu {
			if err := store.UpdatePlanCfu(ctx, studentID, proposal.ActualCfu); err != nil {
				return err
			}
		}
		plan.ActualCfu = proposal.ActualCfu
		updated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete releases every seat held by the plan and removes it.
func (s *StudyPlanService) Delete(ctx context.Context, studentID string) error {
	return s.run(ctx, OperationDelete, studentID, func(ctx context.Context, store repository.PlanStore) error {
		if _, err := lockExistingPlan(ctx, store, studentID); err != nil {
			return err
		}
		current, err := store.ListMembership(ctx, studentID)
		if err != nil {
			return err
		}
		if _, err := store.LockCourses(ctx, current); err != nil {
			return err
		}
		if _, err := Reconcile(ctx, store, studentID, current, nil); err != nil {
			return err
		}
		return store.DeletePlan(ctx, studentID)
	})
}

// Preview computes the add/remove state of every catalog course for a draft
// course set without touching the store.
func (s *StudyPlanService) Preview(ctx context.Context, studentID string, req dto.PreviewRequest) (*dto.PreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "invalid preview payload")
	}
	planType, _ := models.ParsePlanType(req.StudyPlanType)
	bounds := planType.Bounds()

	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.repo.ListMembership(ctx, studentID)
	if err != nil {
		return nil, s.storeError(err, "failed to load study plan courses")
	}

	snap := snapshotFromCatalog(catalog)
	draft := PlanDraft{Selected: req.Courses, Bounds: bounds, Enrolled: enrolled}
	total := draft.cfu(snap)

	resp := &dto.PreviewResponse{
		StudyPlanType: planType,
		MinCfu:        bounds.Min,
		MaxCfu:        bounds.Max,
		ActualCfu:     total,
		Courses:       make([]dto.CourseState, 0, len(catalog)),
	}
	rej := ValidatePlan(PlanProposal{
		Type:      planType,
		MinCfu:    bounds.Min,
		MaxCfu:    bounds.Max,
		ActualCfu: total,
		CourseIDs: req.Courses,
	}, snap, enrolled)
	resp.Savable = rej == nil
	if rej != nil {
		resp.Problem = rej.Message
	}

	for _, entry := range catalog {
		state := dto.CourseState{CourseID: entry.ID, Selected: contains(req.Courses, entry.ID)}
		if state.Selected {
			remove := RemoveState(entry.Course, draft, snap)
			state.RemoveBlocked = remove.Blocked
			state.RemoveDetail = remove.Detail
		}
		add := PresentationState(entry.Course, draft, snap)
		state.AddBlocked = add.Blocked
		state.AddReason = string(add.Reason)
		state.AddDetail = add.Detail
		resp.Courses = append(resp.Courses, state)
	}
	return resp, nil
}

func (s *StudyPlanService) proposal(req dto.StudyPlanRequest) (PlanProposal, error) {
	if err := s.validator.Struct(req); err != nil {
		return PlanProposal{}, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "invalid study plan payload")
	}
	planType, ok := models.ParsePlanType(req.StudyPlanType)
	if !ok {
		return PlanProposal{}, appErrors.Clone(appErrors.ErrUnprocessable, "unknown study plan type")
	}
	return PlanProposal{
		Type:      planType,
		MinCfu:    *req.MinCfu,
		MaxCfu:    *req.MaxCfu,
		ActualCfu: *req.ActualCfu,
		CourseIDs: req.Courses,
	}, nil
}

// run executes fn in a bounded transaction and maps its outcome.
func (s *StudyPlanService) run(ctx context.Context, operation, studentID string, fn func(ctx context.Context, store repository.PlanStore) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	err := s.repo.WithinTx(ctx, func(store repository.PlanStore) error {
		return fn(ctx, store)
	})
	outcome, mapped := s.classify(err)
	s.metrics.ObservePlanOperation(operation, outcome, time.Since(start))

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("student_id", studentID),
		zap.String("outcome", outcome),
	}
	switch outcome {
	case OutcomeOK:
		s.logger.Info("study plan updated", fields...)
		// seat counts changed; the catalog listing is stale
		_ = s.cache.Invalidate(context.WithoutCancel(ctx), CatalogCachePattern)
		return nil
	case OutcomeRejected, OutcomeConflict:
		s.logger.Info("study plan request refused", append(fields, zap.String("code", mapped.Code), zap.String("reason", mapped.Message))...)
	case OutcomeIntegrity:
		s.logger.Warn("study plan write hit a store constraint", append(fields, zap.Error(err))...)
	default:
		s.logger.Error("study plan transaction failed", append(fields, zap.Error(err))...)
	}
	return mapped
}

// classify maps a transaction error onto the caller-facing taxonomy.
func (s *StudyPlanService) classify(err error) (string, *appErrors.Error) {
	if err == nil {
		return OutcomeOK, nil
	}

	var rej *Rejection
	if errors.As(err, &rej) {
		return OutcomeRejected, rej.AsError()
	}

	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(appErr, appErrors.ErrPlanExists), errors.Is(appErr, appErrors.ErrPlanNotFound):
			return OutcomeConflict, appErr
		case appErrors.IsStoreIntegrity(appErr):
			if appErr.Details == nil {
				appErr = appErrors.WithDetails(appErr, appErr.Message, map[string]interface{}{"retryable": true})
			}
			return OutcomeIntegrity, appErr
		case errors.Is(appErr, appErrors.ErrStoreUnavailable):
			return OutcomeUnavailable, appErr
		}
	}

	if isTransportError(err) {
		return OutcomeUnavailable, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if appErr != nil {
		return OutcomeError, appErr
	}
	return OutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "study plan transaction failed")
}

func (s *StudyPlanService) storeError(err error, message string) error {
	if isTransportError(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// isTransportError reports failures of the connection rather than of the data.
// lib/pq surfaces an expired statement context as the server's query_canceled
// (57014), not as context.DeadlineExceeded.
func isTransportError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "57", "08": // operator intervention, connection exception
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func lockExistingPlan(ctx context.Context, store repository.PlanStore, studentID string) (*models.StudyPlan, error) {
	plan, err := store.LockPlan(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// lockSnapshot locks every course in lockIDs and reads the incompatibilities of target.
func lockSnapshot(ctx context.Context, store repository.PlanStore, lockIDs, target []string) (CatalogSnapshot, error) {
	courses, err := store.LockCourses(ctx, lockIDs)
	if err != nil {
		return CatalogSnapshot{}, err
	}
	pairs, err := store.ListIncompatibilities(ctx, target)
	if err != nil {
		return CatalogSnapshot{}, err
	}
	return NewCatalogSnapshot(courses, pairs), nil
}

func union(a, b []string) []string {
	set := toSet(a)
	out := append([]string(nil), a...)
	for _, id := range b {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
