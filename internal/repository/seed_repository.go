package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// CatalogSeed is the full content loaded by the seeding CLI.
type CatalogSeed struct {
	Courses           []models.Course
	Incompatibilities []models.Incompatibility
	Students          []models.Student
}

// SeedRepository writes catalog and account fixtures.
type SeedRepository struct {
	db *sqlx.DB
}

// NewSeedRepository constructs the repository.
func NewSeedRepository(db *sqlx.DB) *SeedRepository {
	return &SeedRepository{db: db}
}

// Load upserts every seed row in one transaction. Courses are inserted before
// prerequisites are attached so declaration order in the seed does not matter.
func (r *SeedRepository) Load(ctx context.Context, seed CatalogSeed) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const courseQuery = `INSERT INTO courses (id, name, cfu, max_s)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, cfu = EXCLUDED.cfu, max_s = EXCLUDED.max_s`
	for _, c := range seed.Courses {
		if _, err = tx.ExecContext(ctx, courseQuery, c.ID, c.Name, c.Cfu, c.MaxS); err != nil {
			return fmt.Errorf("seed course %s: %w", c.ID, err)
		}
	}

	const requiredQuery = `UPDATE courses SET required = $2 WHERE id = $1`
	for _, c := range seed.Courses {
		if c.Required == nil {
			continue
		}
		if _, err = tx.ExecContext(ctx, requiredQuery, c.ID, *c.Required); err != nil {
			return fmt.Errorf("seed prerequisite of %s: %w", c.ID, err)
		}
	}

	const pairQuery = `INSERT INTO incompatibilities (course1, course2) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, pair := range seed.Incompatibilities {
		if _, err = tx.ExecContext(ctx, pairQuery, pair.Course1, pair.Course2); err != nil {
			return fmt.Errorf("seed incompatibility %s/%s: %w", pair.Course1, pair.Course2, err)
		}
	}

	const studentQuery = `INSERT INTO students (id, email, full_name, password_hash, created_at)
VALUES (:id, :email, :full_name, :password_hash, :created_at)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, password_hash = EXCLUDED.password_hash`
	for i := range seed.Students {
		if seed.Students[i].CreatedAt.IsZero() {
			seed.Students[i].CreatedAt = time.Now().UTC()
		}
		if _, err = tx.NamedExecContext(ctx, studentQuery, seed.Students[i]); err != nil {
			return fmt.Errorf("seed student %s: %w", seed.Students[i].ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
