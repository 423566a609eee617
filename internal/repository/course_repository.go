package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyplan-api/internal/models"
)

const courseColumns = `id, name, cfu, actual_s, max_s, required`

// CourseRepository reads the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListCourses returns every catalog course ordered by name.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY name, id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// GetCourse returns a course by id or sql.ErrNoRows.
func (r *CourseRepository) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListIncompatibilities returns the ids of courses incompatible with id.
func (r *CourseRepository) ListIncompatibilities(ctx context.Context, id string) ([]string, error) {
	const query = `SELECT course1, course2 FROM incompatibilities WHERE course1 = $1 OR course2 = $1`
	var pairs []models.Incompatibility
	if err := r.db.SelectContext(ctx, &pairs, query, id); err != nil {
		return nil, fmt.Errorf("list incompatibilities of %s: %w", id, err)
	}
	ids := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		ids = append(ids, pair.Other(id))
	}
	return ids, nil
}

// ListAllIncompatibilities returns every incompatible pair.
func (r *CourseRepository) ListAllIncompatibilities(ctx context.Context) ([]models.Incompatibility, error) {
	const query = `SELECT course1, course2 FROM incompatibilities ORDER BY course1, course2`
	var pairs []models.Incompatibility
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("list incompatibilities: %w", err)
	}
	return pairs, nil
}
