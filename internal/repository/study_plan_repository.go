package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// planRow mirrors the study_plans table, where the plan type is a single bit.
type planRow struct {
	Student   string `db:"student"`
	FullTime  bool   `db:"fulltime"`
	MinCfu    int    `db:"min_cfu"`
	MaxCfu    int    `db:"max_cfu"`
	ActualCfu int    `db:"actual_cfu"`
}

func (r planRow) toModel() *models.StudyPlan {
	planType := models.PlanTypePartTime
	if r.FullTime {
		planType = models.PlanTypeFullTime
	}
	return &models.StudyPlan{
		StudentID: r.Student,
		Type:      planType,
		MinCfu:    r.MinCfu,
		MaxCfu:    r.MaxCfu,
		ActualCfu: r.ActualCfu,
	}
}

func fromModel(plan models.StudyPlan) planRow {
	return planRow{
		Student:   plan.StudentID,
		FullTime:  plan.Type == models.PlanTypeFullTime,
		MinCfu:    plan.MinCfu,
		MaxCfu:    plan.MaxCfu,
		ActualCfu: plan.ActualCfu,
	}
}

// StudyPlanRepository reads plans and opens plan transactions.
type StudyPlanRepository struct {
	db *sqlx.DB
}

// NewStudyPlanRepository constructs the repository.
func NewStudyPlanRepository(db *sqlx.DB) *StudyPlanRepository {
	return &StudyPlanRepository{db: db}
}

// GetPlan returns the student's plan or sql.ErrNoRows.
func (r *StudyPlanRepository) GetPlan(ctx context.Context, studentID string) (*models.StudyPlan, error) {
	const query = `SELECT student, fulltime, min_cfu, max_cfu, actual_cfu FROM study_plans WHERE student = $1`
	var row planRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// ListMembership returns the ids of the courses in the student's plan.
func (r *StudyPlanRepository) ListMembership(ctx context.Context, studentID string) ([]string, error) {
	return listMembership(ctx, r.db, studentID)
}

// ListPlanCourses returns the full course rows of the student's plan ordered by name.
func (r *StudyPlanRepository) ListPlanCourses(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.cfu, c.actual_s, c.max_s, c.required
FROM study_plan_courses s JOIN courses c ON s.course = c.id
WHERE s.student = $1
ORDER BY c.name, c.id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list plan courses: %w", err)
	}
	return courses, nil
}

// WithinTx runs fn inside one transaction, rolling back when fn or the commit fails.
func (r *StudyPlanRepository) WithinTx(ctx context.Context, fn func(store PlanStore) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin study plan tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&planTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit study plan tx: %w", err)
	}
	return nil
}

func listMembership(ctx context.Context, q sqlx.QueryerContext, studentID string) ([]string, error) {
	const query = `SELECT course FROM study_plan_courses WHERE student = $1 ORDER BY course`
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list membership: %w", err)
	}
	return ids, nil
}
