package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"

	constraintWithinMax   = "courses_actual_s_within_max"
	constraintNonNegative = "courses_actual_s_non_negative"
)

// PlanStore is the transactional view of the catalog and plan tables used
// while a plan is created, edited or deleted. Every call runs on the same
// transaction.
type PlanStore interface {
	LockPlan(ctx context.Context, studentID string) (*models.StudyPlan, error)
	ListMembership(ctx context.Context, studentID string) ([]string, error)
	LockCourses(ctx context.Context, ids []string) ([]models.Course, error)
	ListIncompatibilities(ctx context.Context, ids []string) ([]models.Incompatibility, error)

	CreatePlan(ctx context.Context, plan models.StudyPlan) error
	UpdatePlanCfu(ctx context.Context, studentID string, actualCfu int) error
	DeletePlan(ctx context.Context, studentID string) error
	AddMembership(ctx context.Context, studentID string, courseIDs []string) error
	RemoveMembership(ctx context.Context, studentID string, courseIDs []string) error

	IncrementEnrollment(ctx context.Context, courseID string) error
	DecrementEnrollment(ctx context.Context, courseID string) error
}

type planTx struct {
	tx *sqlx.Tx
}

// LockPlan reads the plan row FOR UPDATE, serialising writers of the same plan.
// It returns sql.ErrNoRows when the student has no plan.
func (p *planTx) LockPlan(ctx context.Context, studentID string) (*models.StudyPlan, error) {
	const query = `SELECT student, fulltime, min_cfu, max_cfu, actual_cfu FROM study_plans WHERE student = $1 FOR UPDATE`
	var row planRow
	if err := p.tx.GetContext(ctx, &row, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock study plan: %w", err)
	}
	return row.toModel(), nil
}

func (p *planTx) ListMembership(ctx context.Context, studentID string) ([]string, error) {
	return listMembership(ctx, p.tx, studentID)
}

// LockCourses reads and row-locks the requested courses in id order so that
// concurrent plans touching overlapping courses always lock in the same order.
// Unknown ids are simply absent from the result.
func (p *planTx) LockCourses(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	var courses []models.Course
	if err := p.tx.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lock courses: %w", err)
	}
	return courses, nil
}

// ListIncompatibilities returns every pair touching at least one of ids.
func (p *planTx) ListIncompatibilities(ctx context.Context, ids []string) ([]models.Incompatibility, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT course1, course2 FROM incompatibilities WHERE course1 = ANY($1) OR course2 = ANY($1)`
	var pairs []models.Incompatibility
	if err := p.tx.SelectContext(ctx, &pairs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list incompatibilities: %w", err)
	}
	return pairs, nil
}

func (p *planTx) CreatePlan(ctx context.Context, plan models.StudyPlan) error {
	const query = `INSERT INTO study_plans (student, fulltime, min_cfu, max_cfu, actual_cfu)
VALUES (:student, :fulltime, :min_cfu, :max_cfu, :actual_cfu)`
	if _, err := p.tx.NamedExecContext(ctx, query, fromModel(plan)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return appErrors.ErrPlanExists
		}
		return fmt.Errorf("create study plan: %w", err)
	}
	return nil
}

func (p *planTx) UpdatePlanCfu(ctx context.Context, studentID string, actualCfu int) error {
	const query = `UPDATE study_plans SET actual_cfu = $2 WHERE student = $1`
	if _, err := p.tx.ExecContext(ctx, query, studentID, actualCfu); err != nil {
		return fmt.Errorf("update study plan cfu: %w", err)
	}
	return nil
}

func (p *planTx) DeletePlan(ctx context.Context, studentID string) error {
	const query = `DELETE FROM study_plans WHERE student = $1`
	if _, err := p.tx.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("delete study plan: %w", err)
	}
	return nil
}

func (p *planTx) AddMembership(ctx context.Context, studentID string, courseIDs []string) error {
	if len(courseIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO study_plan_courses (student, course) SELECT $1, unnest($2::text[])`
	if _, err := p.tx.ExecContext(ctx, query, studentID, pq.Array(courseIDs)); err != nil {
		return fmt.Errorf("add plan courses: %w", err)
	}
	return nil
}

func (p *planTx) RemoveMembership(ctx context.Context, studentID string, courseIDs []string) error {
	if len(courseIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM study_plan_courses WHERE student = $1 AND course = ANY($2)`
	if _, err := p.tx.ExecContext(ctx, query, studentID, pq.Array(courseIDs)); err != nil {
		return fmt.Errorf("remove plan courses: %w", err)
	}
	return nil
}

// IncrementEnrollment adds one student to the course unless its cap is reached.
func (p *planTx) IncrementEnrollment(ctx context.Context, courseID string) error {
	const query = `UPDATE courses SET actual_s = actual_s + 1 WHERE id = $1 AND (max_s IS NULL OR actual_s < max_s)`
	return p.adjustEnrollment(ctx, query, courseID, appErrors.ErrCapacityExceeded)
}

// DecrementEnrollment removes one student from the course unless it is already empty.
func (p *planTx) DecrementEnrollment(ctx context.Context, courseID string) error {
	const query = `UPDATE courses SET actual_s = actual_s - 1 WHERE id = $1 AND actual_s > 0`
	return p.adjustEnrollment(ctx, query, courseID, appErrors.ErrBelowZero)
}

func (p *planTx) adjustEnrollment(ctx context.Context, query, courseID string, guard *appErrors.Error) error {
	res, err := p.tx.ExecContext(ctx, query, courseID)
	if err != nil {
		if integrity := integrityError(err); integrity != nil {
			return integrity
		}
		return fmt.Errorf("update enrollment of %s: %w", courseID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment of %s: %w", courseID, err)
	}
	if affected == 0 {
		return appErrors.WithDetails(guard, fmt.Sprintf("%s (course %s)", guard.Message, courseID), map[string]interface{}{
			"courseId":  courseID,
			"retryable": true,
		})
	}
	return nil
}

// integrityError maps the courses CHECK constraints to store integrity errors.
func integrityError(err error) *appErrors.Error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqCheckViolation {
		return nil
	}
	switch pqErr.Constraint {
	case constraintWithinMax:
		return appErrors.ErrCapacityExceeded
	case constraintNonNegative:
		return appErrors.ErrBelowZero
	}
	return appErrors.Wrap(err, appErrors.ErrStoreIntegrity.Code, appErrors.ErrStoreIntegrity.Status, appErrors.ErrStoreIntegrity.Message)
}
